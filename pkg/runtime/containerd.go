package runtime

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/nexusshell/nexuscore/pkg/log"
	"github.com/rs/zerolog"
)

const (
	// DefaultNamespace is the containerd namespace NexusShell containers
	// run under, isolating them from any other containerd tenant on the host.
	DefaultNamespace = "nexuscore"

	// DefaultSocketPath is the default containerd socket.
	DefaultSocketPath = "/run/containerd/containerd.sock"
)

// ContainerdRuntime implements the container lifecycle contract (create,
// start, kill, delete, exec, pause/resume, state, list, update) on top of
// containerd. containerd's runc shim already performs the namespace/cgroup
// setup the contract describes (clone/unshare, per-container cgroup files);
// this type's own job is the lifecycle state machine and its persisted
// {root}/containers/{id}/config.json envelope, which survives a daemon
// restart independently of containerd's own metadata store.
type ContainerdRuntime struct {
	client    *containerd.Client
	namespace string
	root      string

	mu     sync.RWMutex
	states map[string]*State

	logger zerolog.Logger
}

// NewContainerdRuntime connects to containerd and rehydrates any container
// state persisted under root from a previous run.
func NewContainerdRuntime(socketPath, root string) (*ContainerdRuntime, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to containerd: %v", ErrRuntimeFailed, err)
	}

	r := &ContainerdRuntime{
		client:    client,
		namespace: DefaultNamespace,
		root:      root,
		states:    make(map[string]*State),
		logger:    log.WithComponent("runtime"),
	}

	if err := r.rehydrate(); err != nil {
		client.Close()
		return nil, err
	}
	return r, nil
}

// rehydrate scans root/containers/*/config.json and loads every container's
// last persisted state into memory, per the startup contract.
func (r *ContainerdRuntime) rehydrate() error {
	states, err := scanStates(r.root)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range states {
		r.states[id] = s
	}
	r.logger.Info().Int("count", len(states)).Msg("rehydrated container state")
	return nil
}

// Close closes the containerd client connection.
func (r *ContainerdRuntime) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *ContainerdRuntime) ctx(ctx context.Context) context.Context {
	return namespaces.WithNamespace(ctx, r.namespace)
}

func (r *ContainerdRuntime) getState(id string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (r *ContainerdRuntime) putState(s *State) error {
	s.UpdatedAt = time.Now()
	if err := writeState(r.root, s); err != nil {
		return err
	}
	r.mu.Lock()
	r.states[s.ID] = s
	r.mu.Unlock()
	return nil
}

// PullImage pulls a container image from a registry, unpacking it for
// snapshot creation.
func (r *ContainerdRuntime) PullImage(ctx context.Context, imageRef string) error {
	ctx = r.ctx(ctx)
	if _, err := r.client.Pull(ctx, imageRef, containerd.WithPullUnpack); err != nil {
		return fmt.Errorf("%w: pull image %s: %v", ErrRuntimeFailed, imageRef, err)
	}
	return nil
}

func resourceOpts(res *Resources) []oci.SpecOpts {
	if res == nil {
		return nil
	}
	var opts []oci.SpecOpts
	if res.CPULimit > 0 {
		shares := uint64(res.CPULimit * 1024)
		quota := int64(res.CPULimit * 100000)
		period := uint64(100000)
		opts = append(opts, oci.WithCPUShares(shares), oci.WithCPUCFS(quota, period))
	}
	if res.MemoryLimit > 0 {
		opts = append(opts, oci.WithMemoryLimit(uint64(res.MemoryLimit)))
	}
	return opts
}

// Create builds the OCI bundle for spec and records it in state Created.
// It does not start the container process; call Start for that.
func (r *ContainerdRuntime) Create(ctx context.Context, spec *Spec) (*State, error) {
	start := time.Now()
	defer func() { runtimeCreateDuration.Observe(float64(time.Since(start).Milliseconds())) }()

	ctx = r.ctx(ctx)

	image, err := r.client.GetImage(ctx, spec.Image)
	if err != nil {
		runtimeOperationErrors.WithLabelValues("create").Inc()
		return nil, fmt.Errorf("%w: get image %s: %v", ErrRuntimeFailed, spec.Image, err)
	}

	opts := append([]oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(spec.Env),
	}, resourceOpts(spec.Resources)...)
	if len(spec.Args) > 0 {
		opts = append(opts, oci.WithProcessArgs(spec.Args...))
	}
	if len(spec.Mounts) > 0 {
		opts = append(opts, oci.WithMounts(spec.Mounts))
	}

	ctrdContainer, err := r.client.NewContainer(
		ctx,
		spec.ID,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(spec.ID+"-snapshot", image),
		containerd.WithNewSpec(opts...),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create container: %v", ErrRuntimeFailed, err)
	}

	st := &State{
		ID:            ctrdContainer.ID(),
		Bundle:        spec.Image,
		Status:        StatusCreated,
		PidFile:       spec.PidFile,
		ConsoleSocket: spec.ConsoleSocket,
		Resources:     spec.Resources,
		Mounts:        spec.Mounts,
		CreatedAt:     time.Now(),
	}
	if err := r.putState(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Start launches a created container's init process.
func (r *ContainerdRuntime) Start(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { runtimeStartDuration.Observe(float64(time.Since(start).Milliseconds())) }()

	st, err := r.getState(id)
	if err != nil {
		return err
	}
	if err := validateTransition(st.Status, "start"); err != nil {
		return err
	}

	ctx = r.ctx(ctx)
	container, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		runtimeOperationErrors.WithLabelValues("start").Inc()
		return fmt.Errorf("%w: load container %s: %v", ErrRuntimeFailed, id, err)
	}

	task, err := container.NewTask(ctx, cio.NullIO)
	if err != nil {
		runtimeOperationErrors.WithLabelValues("start").Inc()
		return fmt.Errorf("%w: create task: %v", ErrRuntimeFailed, err)
	}
	if err := task.Start(ctx); err != nil {
		runtimeOperationErrors.WithLabelValues("start").Inc()
		return fmt.Errorf("%w: start task: %v", ErrRuntimeFailed, err)
	}

	st.Status = StatusRunning
	st.Pid = int(task.Pid())
	if err := writePidFile(st.PidFile, st.Pid); err != nil {
		r.logger.Warn().Err(err).Str("container_id", id).Msg("failed to write pid file")
	}
	if err := r.putState(st); err != nil {
		return err
	}
	runtimeContainersRunning.Inc()

	go r.watchExit(context.Background(), id, task)
	return nil
}

// watchExit waits for a started task to exit and records the terminal
// state, so State()/List() reflect reality even without an explicit kill.
func (r *ContainerdRuntime) watchExit(ctx context.Context, id string, task containerd.Task) {
	ctx = r.ctx(ctx)
	statusC, err := task.Wait(ctx)
	if err != nil {
		return
	}
	status := <-statusC

	st, err := r.getState(id)
	if err != nil {
		return
	}
	if st.Status.terminal() {
		return
	}
	st.Status = StatusExited
	st.ExitCode = int(status.ExitCode())
	_ = r.putState(st)
	runtimeContainersRunning.Dec()
	if _, err := task.Delete(ctx); err != nil {
		r.logger.Warn().Err(err).Str("container_id", id).Msg("failed to delete exited task")
	}
}

// Kill sends signal to a container's init process. Allowed from any
// non-terminal state.
func (r *ContainerdRuntime) Kill(ctx context.Context, id string, sig syscall.Signal) error {
	st, err := r.getState(id)
	if err != nil {
		return err
	}
	if err := validateKill(st.Status); err != nil {
		return err
	}

	ctx = r.ctx(ctx)
	container, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: load container %s: %v", ErrRuntimeFailed, id, err)
	}
	task, err := container.Task(ctx, nil)
	if err != nil {
		// no task means nothing to signal; treat as already stopped.
		st.Status = StatusExited
		return r.putState(st)
	}

	st.Status = StatusStopping
	if err := r.putState(st); err != nil {
		return err
	}

	if err := task.Kill(ctx, sig); err != nil {
		return fmt.Errorf("%w: kill task: %v", ErrRuntimeFailed, err)
	}
	return nil
}

// Delete removes a container and its snapshot. A running container is
// rejected unless force is set, in which case it is killed first.
func (r *ContainerdRuntime) Delete(ctx context.Context, id string, force bool) error {
	st, err := r.getState(id)
	if err != nil {
		return err
	}
	if err := validateDelete(st.Status, force); err != nil {
		return err
	}

	ctx = r.ctx(ctx)
	if st.Status == StatusRunning || st.Status == StatusPaused {
		stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_ = r.Kill(stopCtx, id, syscall.SIGKILL)
		cancel()
	}

	container, err := r.client.LoadContainer(ctx, id)
	if err == nil {
		if task, terr := container.Task(ctx, nil); terr == nil {
			_, _ = task.Delete(ctx, containerd.WithProcessKill)
		}
		if err := container.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
			return fmt.Errorf("%w: delete container: %v", ErrRuntimeFailed, err)
		}
	}

	r.mu.Lock()
	delete(r.states, id)
	r.mu.Unlock()
	return removeStateDir(r.root, id)
}

// Pause freezes a running container's process group via the cgroup freezer.
func (r *ContainerdRuntime) Pause(ctx context.Context, id string) error {
	st, err := r.getState(id)
	if err != nil {
		return err
	}
	if err := validateTransition(st.Status, "pause"); err != nil {
		return err
	}

	ctx = r.ctx(ctx)
	container, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: load container %s: %v", ErrRuntimeFailed, id, err)
	}
	task, err := container.Task(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: get task: %v", ErrRuntimeFailed, err)
	}
	if err := task.Pause(ctx); err != nil {
		return fmt.Errorf("%w: pause task: %v", ErrRuntimeFailed, err)
	}

	st.Status = StatusPaused
	return r.putState(st)
}

// Resume unfreezes a paused container back to Running.
func (r *ContainerdRuntime) Resume(ctx context.Context, id string) error {
	st, err := r.getState(id)
	if err != nil {
		return err
	}
	if err := validateTransition(st.Status, "resume"); err != nil {
		return err
	}

	ctx = r.ctx(ctx)
	container, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: load container %s: %v", ErrRuntimeFailed, id, err)
	}
	task, err := container.Task(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: get task: %v", ErrRuntimeFailed, err)
	}
	if err := task.Resume(ctx); err != nil {
		return fmt.Errorf("%w: resume task: %v", ErrRuntimeFailed, err)
	}

	st.Status = StatusRunning
	return r.putState(st)
}

// ExecResult is the outcome of a one-shot exec into a running container.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Exec re-enters a running container's namespaces and executes argv,
// inheriting its environment. tty requests a pseudo-terminal for the
// spawned process.
func (r *ContainerdRuntime) Exec(ctx context.Context, id string, argv []string, tty bool) (*ExecResult, error) {
	st, err := r.getState(id)
	if err != nil {
		return nil, err
	}
	if err := validateTransition(st.Status, "exec"); err != nil {
		return nil, err
	}

	ctx = r.ctx(ctx)
	container, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load container %s: %v", ErrRuntimeFailed, id, err)
	}
	task, err := container.Task(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: get task: %v", ErrRuntimeFailed, err)
	}

	spec, err := container.Spec(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read container spec: %v", ErrRuntimeFailed, err)
	}
	procSpec := spec.Process
	procSpec.Args = argv
	procSpec.Terminal = tty

	execID := "exec-" + uuid.New().String()[:8]
	var stdout, stderr bytes.Buffer
	process, err := task.Exec(ctx, execID, procSpec, cio.NewCreator(cio.WithStreams(nil, &stdout, &stderr)))
	if err != nil {
		return nil, fmt.Errorf("%w: exec: %v", ErrRuntimeFailed, err)
	}
	defer process.Delete(ctx)

	statusC, err := process.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: wait for exec: %v", ErrRuntimeFailed, err)
	}
	if err := process.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w: start exec: %v", ErrRuntimeFailed, err)
	}
	status := <-statusC

	return &ExecResult{
		ExitCode: int(status.ExitCode()),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Update writes new resource limits to a container's live cgroup.
func (r *ContainerdRuntime) Update(ctx context.Context, id string, res *Resources) error {
	st, err := r.getState(id)
	if err != nil {
		return err
	}
	if err := validateTransition(st.Status, "update"); err != nil {
		return err
	}

	if st.Status == StatusRunning {
		ctx = r.ctx(ctx)
		container, err := r.client.LoadContainer(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: load container %s: %v", ErrRuntimeFailed, id, err)
		}
		task, err := container.Task(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: get task: %v", ErrRuntimeFailed, err)
		}

		linux := &specs.LinuxResources{}
		if res.MemoryLimit > 0 {
			limit := res.MemoryLimit
			linux.Memory = &specs.LinuxMemory{Limit: &limit}
		}
		if res.CPULimit > 0 {
			shares := uint64(res.CPULimit * 1024)
			quota := int64(res.CPULimit * 100000)
			period := uint64(100000)
			linux.CPU = &specs.LinuxCPU{Shares: &shares, Quota: &quota, Period: &period}
		}
		if err := task.Update(ctx, containerd.WithResources(linux)); err != nil {
			return fmt.Errorf("%w: update task resources: %v", ErrRuntimeFailed, err)
		}
	}

	st.Resources = res
	return r.putState(st)
}

// State returns a container's current persisted state.
func (r *ContainerdRuntime) State(ctx context.Context, id string) (*State, error) {
	return r.getState(id)
}

// List returns every known container's state. format is accepted for
// parity with the contract (list(format)) but rendering it for display is
// left to the caller (e.g. cmd/nexusctl).
func (r *ContainerdRuntime) List(ctx context.Context, format string) ([]*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*State, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s)
	}
	return out, nil
}

func writePidFile(path string, pid int) error {
	if path == "" {
		return nil
	}
	return writeFileAtomic(path, []byte(fmt.Sprintf("%d", pid)))
}
