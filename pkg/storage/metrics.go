package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	storageOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexuscore_storage_operation_duration_seconds",
		Help:    "Registry store operation duration by operation and record kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "kind"})
	storageOperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_storage_operation_errors_total",
		Help: "Failed registry store operations by operation and record kind.",
	}, []string{"operation", "kind"})
)

func init() {
	prometheus.MustRegister(storageOperationDuration, storageOperationErrors)
}

// newTimer returns a function that, when called, yields elapsed seconds
// since newTimer was invoked.
func newTimer() func() float64 {
	start := time.Now()
	return func() float64 { return time.Since(start).Seconds() }
}
