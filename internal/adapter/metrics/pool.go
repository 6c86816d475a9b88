package metrics

import "github.com/prometheus/client_golang/prometheus"

// PoolMetrics holds Prometheus metrics for the subscriber pool.
type PoolMetrics struct {
	ConnectedClients   prometheus.Gauge
	Units              prometheus.Gauge
	Broadcasts         prometheus.Counter
	DroppedConnections prometheus.Counter
}

// NewPoolMetrics creates and registers subscriber pool metrics on the given registry.
func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	m := &PoolMetrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "connected_clients",
			Help:      "Number of clients admitted to a distribution unit.",
		}),
		Units: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "units",
			Help:      "Number of distribution units in the pool.",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "broadcasts_total",
			Help:      "Total number of pool-wide broadcasts.",
		}),
		DroppedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "dropped_connections_total",
			Help:      "Total number of connections dropped because a send failed during broadcast.",
		}),
	}

	reg.MustRegister(m.ConnectedClients, m.Units, m.Broadcasts, m.DroppedConnections)
	return m
}
