/*
Package metrics provides Prometheus metrics collection and exposition for the
NexusShell daemon core. It defines the small set of cluster-wide gauges and
histograms this core owns directly; each component package (pkg/events,
pkg/registry, pkg/runtime, pkg/network, pkg/distsched, pkg/remoteexec,
pkg/pipeline, pkg/daemon, pkg/daemon/transport) registers and updates its own
nexuscore_<component>_* metrics in its own metrics.go rather than routing
through this package — this package holds only the handful of metrics that
genuinely belong to the daemon's cluster/container/volume state rather than
any single component.

# Metrics Catalog

nexuscore_containers_total{state}:
  - Type: Gauge
  - Description: Containers by lifecycle state, refreshed by pkg/daemon/transport
    after every create/start/stop/remove
  - Labels: state (created, running, paused, exited)

nexuscore_volumes_total:
  - Type: Gauge
  - Description: Total number of volumes, refreshed by pkg/daemon after every
    create/delete

nexuscore_containers_failed_total:
  - Type: Counter
  - Description: Total container creations that returned an error

nexuscore_container_create_duration_seconds:
nexuscore_container_start_duration_seconds:
nexuscore_container_stop_duration_seconds:
  - Type: Histogram
  - Description: Time taken for the corresponding Container RPC handler in
    pkg/daemon/transport to complete

nexuscore_raft_is_leader:
  - Type: Gauge
  - Description: Whether this node currently holds Raft leadership (1 or 0)

nexuscore_raft_peers_total:
  - Type: Gauge
  - Description: Number of servers in the current Raft configuration

nexuscore_raft_log_index:
nexuscore_raft_applied_index:
  - Type: Gauge
  - Description: Raft's last log index and last applied index; their
    difference is the commit lag

nexuscore_raft_apply_duration_seconds:
  - Type: Histogram
  - Description: Time the registries FSM (pkg/daemon) spends applying one
    committed log entry to the store

nexuscore_raft_commit_duration_seconds:
  - Type: Histogram
  - Description: Time pkg/daemon.Cluster.Apply spends from proposing a write
    to Raft returning a result

# Usage

	import "github.com/nexusshell/nexuscore/pkg/metrics"

	metrics.VolumesTotal.Set(3)
	metrics.ContainersTotal.WithLabelValues("running").Set(5)

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.ContainerCreateDuration)

	http.Handle("/metrics", metrics.Handler())

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - pkg/daemon/cluster.go: the Raft metrics' sole writer
  - pkg/daemon/transport/container.go, pkg/daemon/registries.go: the
    container/volume gauges' writers
*/
package metrics
