package network

import "github.com/prometheus/client_golang/prometheus"

var (
	networkSetups = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_network_setups_total",
		Help: "Total successful container network setups.",
	})
	networkSetupErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_network_setup_errors_total",
		Help: "Failed container network setups by failure stage.",
	}, []string{"stage"})
	networkActiveInterfaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexuscore_network_active_interfaces",
		Help: "Currently allocated container network interfaces.",
	})
)

func init() {
	prometheus.MustRegister(networkSetups, networkSetupErrors, networkActiveInterfaces)
}
