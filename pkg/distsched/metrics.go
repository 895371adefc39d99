package distsched

import "github.com/prometheus/client_golang/prometheus"

var (
	nodesRegistered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexuscore_distsched_nodes_registered",
		Help: "Number of nodes currently registered.",
	})
	allocationsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexuscore_distsched_allocations_active",
		Help: "Number of active resource allocations.",
	})
	allocationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_distsched_allocation_failures_total",
		Help: "Total allocation attempts that failed to find a node.",
	}, []string{"policy"})
	preemptions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_distsched_preemptions_total",
		Help: "Total allocations forcibly released to make room for another.",
	})
)

func init() {
	prometheus.MustRegister(nodesRegistered, allocationsActive, allocationFailures, preemptions)
}
