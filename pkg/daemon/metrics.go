package daemon

import "github.com/prometheus/client_golang/prometheus"

var (
	healthUnhealthyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexuscore_daemon_health_unhealthy_total",
			Help: "Total failed health probes, by check type.",
		},
		[]string{"check_type"},
	)

	shutdownDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexuscore_daemon_shutdown_duration_seconds",
			Help:    "Wall-clock time spent in graceful shutdown.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(healthUnhealthyTotal, shutdownDuration)
}
