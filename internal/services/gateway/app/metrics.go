package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker"
)

// Metrics groups the gateway's collectors. All methods are nil-safe so
// components can be built without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
	flows            *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "upstream_requests_total",
			Help:      "Calls to upstream services by outcome.",
		}, []string{"upstream", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "advisor",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of upstream calls, retries included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "advisor",
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"upstream"}),
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "flows_total",
			Help:      "Form submissions by flow and result.",
		}, []string{"flow", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the gateway.",
		}, []string{"method", "route", "code"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "events_published_total",
			Help:      "Recommendation events handed to the broker.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests, m.upstreamLatency, m.breakerState,
		m.flows, m.httpRequests, m.eventsPublished,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) observeUpstream(name, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(name, outcome).Inc()
	m.upstreamLatency.WithLabelValues(name).Observe(seconds)
}

func (m *Metrics) setBreakerState(name string, st gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch st {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

func (m *Metrics) flow(flow, result string) {
	if m == nil {
		return
	}
	m.flows.WithLabelValues(flow, result).Inc()
}

func (m *Metrics) httpRequest(method, route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusLabel(code)).Inc()
}

func (m *Metrics) eventPublished(kind, outcome string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(kind, outcome).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
