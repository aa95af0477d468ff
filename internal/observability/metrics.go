// Package observability provides prometheus metrics for the server.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of auth events.
const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
	OutcomeError  = "error"
)

// Metrics contains the custom prometheus metrics of the server.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	AuthEventsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the custom metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_auth_events_total",
				Help: "Total number of authentication events by event and outcome",
			},
			[]string{"event", "outcome"},
		),
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.AuthEventsTotal)

	return m
}

// RecordAuthEvent counts an authentication event, such as a login.
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// NewRegistry creates a registry with the standard Go and process collectors.
// A fresh registry keeps tests from sharing the global one.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the metrics in the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
