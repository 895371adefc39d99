/*
Package runtime implements NexusShell's container lifecycle: an
OCI-like create/start/kill/delete/exec/pause/resume contract backed by
containerd, with state persisted as JSON so the daemon can rehydrate every
container after a restart without depending on containerd's own metadata
store.

# Architecture

	┌─────────────────────── ContainerdRuntime ───────────────────────┐
	│                                                                   │
	│  Lifecycle contract            containerd client                 │
	│  Create/Start/Kill/Delete  ──▶  namespace "nexuscore"             │
	│  Exec/Pause/Resume/Update       runc shim (clone/unshare, cgroups)│
	│  State/List                                                      │
	│        │                                                         │
	│        ▼                                                         │
	│  {root}/containers/{id}/config.json  (atomic write, rehydrated    │
	│                                        at startup)                │
	└───────────────────────────────────────────────────────────────────┘

# State machine

	Created -> Running -> {Paused <-> Running} -> Stopping -> Exited

Kill is accepted from any non-terminal state. Delete rejects a running
container unless force is set, in which case it is killed first. Every
transition is written to config.json before the call returns.

# Usage

	rt, err := runtime.NewContainerdRuntime("", "/var/lib/nexuscore")
	if err != nil {
		log.Fatal(err)
	}
	defer rt.Close()

	ctx := context.Background()
	if err := rt.PullImage(ctx, "docker.io/library/alpine:latest"); err != nil {
		log.Fatal(err)
	}

	st, err := rt.Create(ctx, &runtime.Spec{
		ID:    "task-abc123",
		Image: "docker.io/library/alpine:latest",
		Args:  []string{"/bin/sleep", "3600"},
		Resources: &runtime.Resources{
			CPULimit:    1.0,
			MemoryLimit: 512 * 1024 * 1024,
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := rt.Start(ctx, st.ID); err != nil {
		log.Fatal(err)
	}

	result, err := rt.Exec(ctx, st.ID, []string{"/bin/echo", "hi"}, false)

	if err := rt.Kill(ctx, st.ID, syscall.SIGTERM); err != nil {
		log.Fatal(err)
	}
	if err := rt.Delete(ctx, st.ID, true); err != nil {
		log.Fatal(err)
	}

# Resource limits

CPULimit is expressed in cores and mapped to both CPU shares (1024 per
core, a relative weight) and a CFS quota/period pair (absolute, 100ms
period) so the limit is enforceable rather than merely advisory.
MemoryLimit is a direct byte value written to the cgroup memory limit.

# Metrics

	nexuscore_runtime_containers_running     - current running count
	nexuscore_runtime_create_duration_ms     - Create() latency
	nexuscore_runtime_start_duration_ms      - Start() latency
	nexuscore_runtime_operation_errors_total - failures by operation

# See also

  - pkg/network for container network setup, layered on top of a
    running container's namespace rather than owned by this package.
  - pkg/registry for the image pull source.
  - OCI runtime spec: https://github.com/opencontainers/runtime-spec
*/
package runtime
