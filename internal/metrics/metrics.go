// Package metrics holds the runtime's prometheus collectors. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shdrug_client"

type Metrics struct {
	registry *prometheus.Registry

	clientRequests *prometheus.CounterVec
	clientDuration *prometheus.HistogramVec
	guardDecisions *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	reminderFetch  *prometheus.CounterVec
	snapshotSize   prometheus.Gauge
	tokenRefreshes *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		clientRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend API requests by status code and method.",
		}, []string{"code", "method"}),
		clientDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_guard_decisions_total",
			Help:      "Navigation guard decisions by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_notifications_total",
			Help:      "Reminder notifications raised, by delivery result.",
		}, []string{"result"}),
		reminderFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_fetches_total",
			Help:      "Today's reminder snapshot fetches, by result.",
		}, []string{"result"}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reminder_snapshot_size",
			Help:      "Number of reminder slots in the current snapshot.",
		}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refresh attempts, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.clientRequests,
		m.clientDuration,
		m.guardDecisions,
		m.notifications,
		m.reminderFetch,
		m.snapshotSize,
		m.tokenRefreshes,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentTransport wraps the backend transport with request counting and
// latency observation.
func (m *Metrics) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if m == nil {
		return next
	}
	return promhttp.InstrumentRoundTripperCounter(m.clientRequests,
		promhttp.InstrumentRoundTripperDuration(m.clientDuration, next))
}

func (m *Metrics) GuardDecision(outcome string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ReminderFetch(result string) {
	if m == nil {
		return
	}
	m.reminderFetch.WithLabelValues(result).Inc()
}

func (m *Metrics) SnapshotSize(n int) {
	if m == nil {
		return
	}
	m.snapshotSize.Set(float64(n))
}

func (m *Metrics) TokenRefresh(result string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(result).Inc()
}
