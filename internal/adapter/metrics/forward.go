package metrics

import "github.com/prometheus/client_golang/prometheus"

// ForwardMetrics holds Prometheus metrics for the durable log hand-off.
type ForwardMetrics struct {
	Forwarded           *prometheus.CounterVec
	Duration            prometheus.Histogram
	BreakerState        prometheus.Gauge
	BreakerStateChanges *prometheus.CounterVec
}

// NewForwardMetrics creates and registers log forwarding metrics on the given registry.
func NewForwardMetrics(reg prometheus.Registerer) *ForwardMetrics {
	m := &ForwardMetrics{
		Forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log_forward",
			Name:      "events_total",
			Help:      "Total number of events handed to the durable log, by result.",
		}, []string{"result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "log_forward",
			Name:      "duration_seconds",
			Help:      "Duration of durable log appends in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "log_forward",
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log_forward",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Circuit breaker state transitions by new state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.Forwarded, m.Duration, m.BreakerState, m.BreakerStateChanges)
	return m
}
