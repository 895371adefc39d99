package events

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_events_published_total",
		Help: "Total events published, by type.",
	}, []string{"type"})
	eventsRetained = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexuscore_events_retained",
		Help: "Current number of events retained in the bus.",
	})
	eventsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_events_evicted_total",
		Help: "Total events evicted for exceeding the bus capacity.",
	})
	eventsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_events_expired_total",
		Help: "Total events expired by the retention sweep.",
	})
	eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_events_dropped_total",
		Help: "Total events dropped for slow subscribers with a full buffer.",
	})
)

func init() {
	prometheus.MustRegister(eventsPublished, eventsRetained, eventsEvicted, eventsExpired, eventsDropped)
}
