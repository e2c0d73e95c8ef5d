package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type connChecker interface {
	IsConnectionOpen() bool
}

// Pinger is satisfied by influxdb2.Client.
type Pinger interface {
	Ping(ctx context.Context) (bool, error)
}

// Deps are the dependencies health and readiness look at.
type Deps struct {
	MQTT        connChecker
	Influx      Pinger
	Writer      *Writer
	MinErrorAge time.Duration // a write error younger than this makes the service not ready
}

type Status struct {
	Status          string           `json:"status"` // ok | degraded | down
	MQTTConnected   bool             `json:"mqtt_connected"`
	InfluxOK        bool             `json:"influx_ok"`
	LastWriteErrorS float64          `json:"last_write_error_age_sec"`
	Ingested        map[string]int64 `json:"ingested"`
}

func (d Deps) minErrorAge() time.Duration {
	if d.MinErrorAge <= 0 {
		return 30 * time.Second
	}
	return d.MinErrorAge
}

func (d Deps) Check(ctx context.Context) Status {
	st := Status{
		MQTTConnected:   d.MQTT != nil && d.MQTT.IsConnectionOpen(),
		LastWriteErrorS: d.Writer.LastErrorAge().Seconds(),
		Ingested:        d.Writer.Counts(),
	}
	if d.Influx != nil {
		ok, err := d.Influx.Ping(ctx)
		st.InfluxOK = ok && err == nil
	}

	switch {
	case st.MQTTConnected && st.InfluxOK && d.Writer.LastErrorAge() > d.minErrorAge():
		st.Status = "ok"
	case st.MQTTConnected || st.InfluxOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	return st
}

// Ready is true only when every dependency is fine.
func (d Deps) Ready(ctx context.Context) bool {
	return d.Check(ctx).Status == "ok"
}

func NewHealthHandler(d Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Check(ctx))
	})
}

// NewReadyHandler answers 200 only when all dependencies are ok.
func NewReadyHandler(d Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		ready := d.Ready(ctx)
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(struct {
			Ready bool `json:"ready"`
		}{ready})
	})
}

// ReportHealth mirrors readiness into the gRPC health server every interval
// until ctx ends, then marks the service NOT_SERVING.
func ReportHealth(ctx context.Context, hs *health.Server, d Deps, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		every = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	update := func() {
		checkCtx, cancel := context.WithTimeout(ctx, every)
		defer cancel()
		st := healthpb.HealthCheckResponse_NOT_SERVING
		if d.Ready(checkCtx) {
			st = healthpb.HealthCheckResponse_SERVING
		}
		if st != last {
			logger.Info("grpc health status", "status", st.String())
			last = st
		}
		hs.SetServingStatus("", st)
	}

	update()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return
		case <-t.C:
			update()
		}
	}
}
