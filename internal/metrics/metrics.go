package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Coordinator bundles every collector the coordinator reports.
type Coordinator struct {
	RingServers       prometheus.Gauge
	ServersByStatus   *prometheus.GaugeVec
	SweepDuration     prometheus.Histogram
	RPCDuration       *prometheus.HistogramVec
	RebalanceInstrs   *prometheus.CounterVec
	DegradedPlacement prometheus.Counter
}

// NewCoordinator registers and returns the coordinator's collector set
// against reg. Passing prometheus.NewRegistry() keeps tests isolated from
// the global default registry.
func NewCoordinator(reg prometheus.Registerer) *Coordinator {
	f := promauto.With(reg)
	return &Coordinator{
		RingServers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "mgfs",
			Subsystem: "coordinator",
			Name:      "ring_servers",
			Help:      "Number of physical chunk servers currently present on the ring.",
		}),
		ServersByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mgfs",
			Subsystem: "coordinator",
			Name:      "servers_by_status",
			Help:      "Number of known chunk servers in each membership status.",
		}, []string{"status"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mgfs",
			Subsystem: "coordinator",
			Name:      "sweep_duration_seconds",
			Help:      "Time spent applying one heartbeat sweep across the membership table.",
			Buckets:   prometheus.DefBuckets,
		}),
		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mgfs",
			Subsystem: "coordinator",
			Name:      "rpc_duration_seconds",
			Help:      "Latency of coordinator RPC operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		RebalanceInstrs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mgfs",
			Subsystem: "coordinator",
			Name:      "rebalance_instructions_total",
			Help:      "Rebalance instructions emitted, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		DegradedPlacement: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mgfs",
			Subsystem: "coordinator",
			Name:      "degraded_placements_total",
			Help:      "Chunks placed by write_file with fewer replicas than requested.",
		}),
	}
}

// SetServerStatusCounts overwrites the servers_by_status gauge vec with
// fresh counts. Callers pass a complete map (zero counts included) so
// stale status labels from a previous snapshot read zero rather than
// lingering at their last nonzero value.
func (c *Coordinator) SetServerStatusCounts(counts map[string]int) {
	for status, n := range counts {
		c.ServersByStatus.WithLabelValues(status).Set(float64(n))
	}
}
