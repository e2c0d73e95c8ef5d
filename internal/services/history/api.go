package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"
)

// Entry is what the gateway shows under "Recent recommendations".
type Entry struct {
	Kind        string    `json:"kind"`
	Session     string    `json:"session"`
	Top         string    `json:"top,omitempty"`
	Probability float64   `json:"probability,omitempty"`
	CropType    string    `json:"crop_type,omitempty"`
	Fertilizer  string    `json:"fertilizer,omitempty"`
	Time        time.Time `json:"time"`
}

// Store reads recent entries, newest first.
type Store interface {
	Recent(ctx context.Context, minutes, limit int) ([]Entry, error)
}

type InfluxStore struct {
	query  api.QueryAPI
	bucket string
}

func NewInfluxStore(client influxdb2.Client, org, bucket string) *InfluxStore {
	return &InfluxStore{query: client.QueryAPI(org), bucket: bucket}
}

func buildFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => r._field == "probability" or r._field == "count" or r._field == "session")
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: %d)
`, bucket, minutes, measurement, limit)
}

func (s *InfluxStore) Recent(ctx context.Context, minutes, limit int) ([]Entry, error) {
	res, err := s.query.Query(ctx, buildFlux(s.bucket, minutes, limit))
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer func() { _ = res.Close() }()

	out := make([]Entry, 0, limit)
	for res.Next() {
		out = append(out, recordToEntry(res.Record()))
	}
	if err := res.Err(); err != nil {
		return out, fmt.Errorf("influx iterate: %w", err)
	}
	return out, nil
}

func recordToEntry(rec *query.FluxRecord) Entry {
	str := func(k string) string {
		if v, ok := rec.ValueByKey(k).(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	var prob float64
	switch v := rec.ValueByKey("probability").(type) {
	case float64:
		prob = v
	case int64:
		prob = float64(v)
	case string:
		prob, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return Entry{
		Kind:        str("kind"),
		Session:     str("session"),
		Top:         str("top"),
		Probability: prob,
		CropType:    str("crop_type"),
		Fertilizer:  str("fertilizer"),
		Time:        rec.Time().UTC(),
	}
}

type recentParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseRecent(r *http.Request, defMin, defLim, defTOms int) recentParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return recentParams{
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

// NewRecentHandler serves GET /history/recent?limit=20[&minutes=1440].
// Query failures still answer 200 with [] and an X-Error header so the
// gateway page degrades to an empty list.
func NewRecentHandler(store Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := parseRecent(r, 1440, 20, 2000)
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
		defer cancel()

		out, err := store.Recent(ctx, p.Minutes, p.Limit)
		if err != nil {
			logger.Warn("recent history query failed", "error", err)
			w.Header().Set("X-Error", "influx-query-error")
		}
		if out == nil {
			out = []Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
}
