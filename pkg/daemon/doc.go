/*
Package daemon hosts the long-running process that owns every other
component as a singleton, exposes their contracts as RPCs over
pkg/daemon/transport, and emits an event for every state-changing
operation.

# Architecture

	cmd/nexusd
	    │
	    ▼
	daemon.Daemon
	    ├── daemon.ContainerRuntime    (narrow interface over *runtime.ContainerdRuntime)
	    ├── daemon.NetworkManager      (narrow interface over *network.Manager)
	    ├── daemon.RegistryClient      (narrow interface over *registry.Client)
	    ├── daemon.Registries          (volume/network/image registries, Raft-replicated)
	    ├── daemon.Cluster             (hashicorp/raft FSM wrapping Registries' writes)
	    ├── daemon.HealthMonitor       (per-container probe loops)
	    └── events.Bus                 (bounded, time-retained event log)

# Ownership

The Daemon is the sole owner of the top-level volume/network/image
registries; every other component reaches them only through
Daemon.Registries(), never by holding a direct storage.Store reference,
so cross-component references stay id-and-lookup rather than back-edges.

# Startup / shutdown

Start runs: init event bus -> rehydrate containers from disk -> initialize
network bridge -> start health monitors -> begin accepting RPC.

Shutdown runs: stop accepting new work -> cancel in-flight tasks with
grace -> persist state -> emit daemon/shutdown -> exit.

# Cluster replication

Registry writes (volume/network/image create and delete) are proposed
through a single-node-bootstrapped Raft group rather than written to the
local bbolt store directly, so a later multi-node deployment shares
exactly one write path with today's single-node one.

# Metrics

nexuscore_daemon_rpc_requests_total, nexuscore_daemon_rpc_request_duration_seconds,
nexuscore_daemon_health_unhealthy_total, nexuscore_daemon_shutdown_duration_seconds.

# See also

pkg/daemon/transport for the JSON-over-HTTP RPC surface; pkg/events for
the event bus; pkg/storage for the registries' persistence; pkg/runtime,
pkg/network, pkg/registry for the components the daemon delegates to.
*/
package daemon
