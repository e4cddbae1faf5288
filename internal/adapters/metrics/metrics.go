// Package metrics exposes Prometheus collectors for upstream API calls and
// view actions.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feeminton"

// Toggle outcomes.
const (
	OutcomeReconciled = "reconciled"
	OutcomeRolledBack = "rolled_back"
	OutcomeBusy       = "busy"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry         *prometheus.Registry
	upstreamDuration *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	toggles          *prometheus.CounterVec
	schedulesCreated *prometheus.CounterVec
	refreshFallbacks prometheus.Counter
}

// New registers all collectors on a fresh registry.
// PRE: none
// POST: Returns metrics ready to observe; Go and process collectors included
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to the club REST API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Calls to the club REST API by status code (0 = transport failure).",
		}, []string{"method", "route", "code"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_toggles_total",
			Help:      "Attendance toggles by outcome.",
		}, []string{"outcome"}),
		schedulesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedules_created_total",
			Help:      "Schedules created, by mode (single or recurring).",
		}, []string{"mode"}),
		refreshFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_refresh_fallbacks_total",
			Help:      "Card refreshes that fell back to the month list.",
		}),
	}
	m.registry.MustRegister(
		m.upstreamDuration,
		m.upstreamTotal,
		m.toggles,
		m.schedulesCreated,
		m.refreshFallbacks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveUpstream records one REST API call.
func (m *Metrics) ObserveUpstream(method, route string, status int, seconds float64) {
	m.upstreamDuration.WithLabelValues(method, route).Observe(seconds)
	m.upstreamTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ToggleOutcome counts one finished attendance toggle.
func (m *Metrics) ToggleOutcome(outcome string) {
	m.toggles.WithLabelValues(outcome).Inc()
}

// SchedulesCreated counts created schedules.
func (m *Metrics) SchedulesCreated(mode string, n int) {
	if n <= 0 {
		return
	}
	m.schedulesCreated.WithLabelValues(mode).Add(float64(n))
}

// RefreshFallback counts a card refresh that needed the month list.
func (m *Metrics) RefreshFallback() {
	m.refreshFallbacks.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
