package runtime

import "github.com/prometheus/client_golang/prometheus"

var (
	runtimeContainersRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexuscore_runtime_containers_running",
		Help: "Current number of containers in state running.",
	})
	runtimeCreateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexuscore_runtime_create_duration_ms",
		Help:    "Time to create a container, in milliseconds.",
		Buckets: prometheus.DefBuckets,
	})
	runtimeStartDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexuscore_runtime_start_duration_ms",
		Help:    "Time to start a container, in milliseconds.",
		Buckets: prometheus.DefBuckets,
	})
	runtimeOperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_runtime_operation_errors_total",
		Help: "Failed lifecycle operations by operation name.",
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(runtimeContainersRunning, runtimeCreateDuration, runtimeStartDuration, runtimeOperationErrors)
}
