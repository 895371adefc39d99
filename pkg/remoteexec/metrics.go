package remoteexec

import "github.com/prometheus/client_golang/prometheus"

var (
	remoteConnections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_remote_connections_total",
		Help: "Total SSH connections established.",
	})
	remoteCommandsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_remote_commands_total",
		Help: "Total remote commands submitted.",
	})
	remoteCommandsSucceeded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_remote_commands_succeeded_total",
		Help: "Total remote commands that completed successfully.",
	})
	remoteCommandsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_remote_commands_failed_total",
		Help: "Total remote commands that failed after exhausting retries.",
	})
	remoteCommandExecutionTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexuscore_remote_command_execution_time_ms",
		Help:    "Remote command execution time in milliseconds.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(remoteConnections, remoteCommandsTotal, remoteCommandsSucceeded, remoteCommandsFailed, remoteCommandExecutionTime)
}
