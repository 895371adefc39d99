package registry

import "github.com/prometheus/client_golang/prometheus"

var (
	registryRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_registry_requests_total",
		Help: "Total registry HTTP requests by operation.",
	}, []string{"operation"})
	registryAuthRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_registry_auth_refreshes_total",
		Help: "Total bearer token fetches/refreshes.",
	})
	registryRequestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_registry_request_errors_total",
		Help: "Failed registry requests by operation.",
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(registryRequestsTotal, registryAuthRefreshes, registryRequestErrors)
}
