package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the web shell.
type Metrics struct {
	registry *prometheus.Registry

	GuardDecisionsTotal *prometheus.CounterVec
	SessionEventsTotal  *prometheus.CounterVec
	StorageErrorsTotal  *prometheus.CounterVec
	ProxyRequestsTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them on registry.
// A nil registry gets a fresh one with the Go and process collectors.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := &Metrics{
		registry: registry,
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workout_web_guard_decisions_total",
				Help: "Route guard decisions by outcome",
			},
			[]string{"decision"},
		),
		SessionEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workout_web_session_events_total",
				Help: "Session store transitions by event",
			},
			[]string{"event"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workout_web_storage_errors_total",
				Help: "Persisted storage failures by operation",
			},
			[]string{"operation"},
		),
		ProxyRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workout_web_proxy_requests_total",
				Help: "Requests forwarded by the development proxy",
			},
			[]string{"prefix", "status"},
		),
	}
	registry.MustRegister(
		m.GuardDecisionsTotal,
		m.SessionEventsTotal,
		m.StorageErrorsTotal,
		m.ProxyRequestsTotal,
	)
	for _, decision := range []string{"allow", "redirect"} {
		m.GuardDecisionsTotal.WithLabelValues(decision)
	}
	for _, event := range []string{"login", "logout"} {
		m.SessionEventsTotal.WithLabelValues(event)
	}
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
