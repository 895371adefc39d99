package transport

import "github.com/prometheus/client_golang/prometheus"

var (
	rpcRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexuscore_daemon_rpc_requests_total",
			Help: "Total RPC requests handled by the daemon's transport router, by route and status class.",
		},
		[]string{"route", "status"},
	)

	rpcRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexuscore_daemon_rpc_request_duration_seconds",
			Help:    "RPC request handling latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(rpcRequestsTotal, rpcRequestDuration)
}
