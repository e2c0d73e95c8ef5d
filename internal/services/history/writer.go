package history

import (
	"log/slog"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	msg "github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
)

// Writer wraps the async WriteAPI and remembers the last write error for
// /healthz and /readyz.
type Writer struct {
	api    api.WriteAPI
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64

	ingested    *prometheus.CounterVec
	writeErrors prometheus.Counter
	done        chan struct{}
}

// NewWriter starts draining w.Errors(); the goroutine ends when the client
// closes that channel.
func NewWriter(w api.WriteAPI, logger *slog.Logger, reg prometheus.Registerer) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	f := promauto.With(reg)
	ww := &Writer{
		api:     w,
		logger:  logger,
		now:     time.Now,
		lastErr: time.Now().Add(-24 * time.Hour),
		counts:  make(map[string]int64),
		ingested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "events_ingested_total",
			Help:      "Recommendation events handed to InfluxDB, by kind.",
		}, []string{"kind"}),
		writeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "write_errors_total",
			Help:      "Asynchronous InfluxDB write errors.",
		}),
		done: make(chan struct{}),
	}
	go ww.drainErrors()
	return ww
}

func (w *Writer) drainErrors() {
	defer close(w.done)
	for err := range w.api.Errors() {
		if err == nil {
			continue
		}
		w.mu.Lock()
		w.lastErr = w.now()
		w.mu.Unlock()
		w.writeErrors.Inc()
		w.logger.Error("influx write error", "error", err)
	}
}

// Write queues evt; batching and flushing are the client's business.
func (w *Writer) Write(evt msg.RecommendationEvent) {
	w.api.WritePoint(EventToPoint(evt))
	w.mu.Lock()
	w.counts[evt.Kind]++
	w.mu.Unlock()
	w.ingested.WithLabelValues(evt.Kind).Inc()
	w.logger.Debug("event stored", "kind", evt.Kind, "session", evt.SessionID)
}

func (w *Writer) Flush() { w.api.Flush() }

// LastErrorAge is how long ago the last write error happened.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return w.now().Sub(t)
}

func (w *Writer) Count(kind string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts[kind]
}

func (w *Writer) Counts() map[string]int64 {
	out := map[string]int64{}
	if w == nil {
		return out
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

// Done is closed once the error channel has been drained.
func (w *Writer) Done() <-chan struct{} { return w.done }
