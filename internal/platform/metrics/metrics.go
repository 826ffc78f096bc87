package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the grievance gateway.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	Operations       *prometheus.CounterVec
	AuditDropped     prometheus.Counter
	HTTPLatency      *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pmkisan_grievance_upstream_requests_total",
			Help: "Calls to the grievance service by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pmkisan_grievance_upstream_duration_seconds",
			Help:    "Latency of calls to the grievance service",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"endpoint"}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pmkisan_grievance_operations_total",
			Help: "Public grievance operations by operation and outcome code",
		}, []string{"operation", "outcome"}),
		AuditDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pmkisan_audit_events_dropped_total",
			Help: "Audit events dropped because the audit buffer was full",
		}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pmkisan_http_request_duration_seconds",
			Help:    "Latency of inbound HTTP requests by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncrementUpstreamRejected counts a call refused by an open circuit.
func (m *Metrics) IncrementUpstreamRejected(endpoint string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, "circuit_open").Inc()
}

// IncrementOperation counts a finished public operation.
func (m *Metrics) IncrementOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// IncrementAuditDropped counts an audit event that could not be buffered.
func (m *Metrics) IncrementAuditDropped() {
	if m == nil {
		return
	}
	m.AuditDropped.Inc()
}

// ObserveHTTP records one inbound request.
func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}
