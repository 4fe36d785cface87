package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pairhub"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Session lifecycle
	Transitions *prometheus.CounterVec
	Disconnects *prometheus.CounterVec
	Reconnects  *prometheus.CounterVec
	Logins      *prometheus.CounterVec
	Sends       *prometheus.CounterVec
	ReadyWait   prometheus.Histogram

	// Broadcast
	BroadcastDropped prometheus.Counter

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with PairHub metrics plus the Go runtime
// and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session status transitions",
		}, []string{"from", "to"}),

		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "disconnects_total",
			Help:      "Protocol disconnects by classification",
		}, []string{"class"}),

		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Automatic reconnect attempts by outcome",
		}, []string{"result"}),

		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login calls by outcome",
		}, []string{"result"}),

		Sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sends_total",
			Help:      "Outbound operations by kind and outcome",
		}, []string{"kind", "result"}),

		ReadyWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "ready_wait_seconds",
			Help:      "Time spent waiting for a session to become ready",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "dropped_total",
			Help:      "Events dropped because a subscriber was full or gone",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Transitions,
		r.Disconnects,
		r.Reconnects,
		r.Logins,
		r.Sends,
		r.ReadyWait,
		r.BroadcastDropped,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// Registerer exposes the underlying registry for components that register
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordTransition counts a status change.
func (r *Registry) RecordTransition(from, to string) {
	if r == nil {
		return
	}
	r.Transitions.WithLabelValues(from, to).Inc()
}

// RecordDisconnect counts a protocol disconnect by class.
func (r *Registry) RecordDisconnect(class string) {
	if r == nil {
		return
	}
	r.Disconnects.WithLabelValues(class).Inc()
}

// RecordReconnect counts a reconnect outcome ("connected", "failed", "timeout").
func (r *Registry) RecordReconnect(result string) {
	if r == nil {
		return
	}
	r.Reconnects.WithLabelValues(result).Inc()
}

// RecordLogin counts a login outcome.
func (r *Registry) RecordLogin(result string) {
	if r == nil {
		return
	}
	r.Logins.WithLabelValues(result).Inc()
}

// RecordSend counts an outbound operation ("text", "file", "registered").
func (r *Registry) RecordSend(kind, result string) {
	if r == nil {
		return
	}
	r.Sends.WithLabelValues(kind, result).Inc()
}

// ObserveReadyWait records how long a readiness wait took.
func (r *Registry) ObserveReadyWait(seconds float64) {
	if r == nil {
		return
	}
	r.ReadyWait.Observe(seconds)
}

// IncBroadcastDropped counts one dropped event.
func (r *Registry) IncBroadcastDropped() {
	if r == nil {
		return
	}
	r.BroadcastDropped.Inc()
}

// RecordRequest counts one HTTP request.
func (r *Registry) RecordRequest(method, route, code string) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, code).Inc()
}

// ObserveRequestDuration records HTTP request latency.
func (r *Registry) ObserveRequestDuration(method, route string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}
