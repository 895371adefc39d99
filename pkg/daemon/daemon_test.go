package daemon

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/nexusshell/nexuscore/pkg/config"
	"github.com/nexusshell/nexuscore/pkg/events"
	"github.com/nexusshell/nexuscore/pkg/runtime"
	"github.com/nexusshell/nexuscore/pkg/storage"
	"github.com/nexusshell/nexuscore/pkg/types"
)

type fakeRuntime struct {
	mu     sync.Mutex
	states map[string]*runtime.State
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{states: make(map[string]*runtime.State)}
}

func (f *fakeRuntime) Create(ctx context.Context, spec *runtime.Spec) (*runtime.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &runtime.State{ID: spec.ID, Status: runtime.StatusCreated, CreatedAt: time.Now()}
	f.states[spec.ID] = st
	return st, nil
}

func (f *fakeRuntime) Start(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id].Status = runtime.StatusRunning
	return nil
}

func (f *fakeRuntime) Kill(ctx context.Context, id string, sig syscall.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id].Status = runtime.StatusExited
	return nil
}

func (f *fakeRuntime) Delete(ctx context.Context, id string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, id)
	return nil
}

func (f *fakeRuntime) Pause(ctx context.Context, id string) error  { return nil }
func (f *fakeRuntime) Resume(ctx context.Context, id string) error { return nil }

func (f *fakeRuntime) Exec(ctx context.Context, id string, argv []string, tty bool) (*runtime.ExecResult, error) {
	return &runtime.ExecResult{ExitCode: 0}, nil
}

func (f *fakeRuntime) Update(ctx context.Context, id string, res *runtime.Resources) error {
	return nil
}

func (f *fakeRuntime) State(ctx context.Context, id string) (*runtime.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[id]
	if !ok {
		return nil, runtime.ErrNotFound
	}
	return st, nil
}

func (f *fakeRuntime) List(ctx context.Context, format string) ([]*runtime.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*runtime.State
	for _, st := range f.states {
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeRuntime) PullImage(ctx context.Context, ref string) error { return nil }
func (f *fakeRuntime) Close() error                                   { return nil }

type fakeNetwork struct{}

func (fakeNetwork) SetupContainerNetwork(ctx context.Context, id string, cfg types.NetworkConfig) (*types.NetworkInterface, error) {
	return &types.NetworkInterface{VethName: "veth-" + id}, nil
}
func (fakeNetwork) CleanupContainerNetwork(ctx context.Context, id string) error { return nil }
func (fakeNetwork) SetupPortMappings(ctx context.Context, id, containerIP string, mappings []types.PortMapping) error {
	return nil
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewBoltStore(dir)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.NodeID = "test-node"
	cfg.DataDir = dir
	cfg.RaftAddr = "127.0.0.1:0"

	d, err := New(cfg, Deps{Runtime: newFakeRuntime(), Network: fakeNetwork{}, Store: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestDaemonStartBeginsAcceptingAndEmitsStartEvent(t *testing.T) {
	d := newTestDaemon(t)
	// Daemon.Start bootstraps the single-node Raft cluster itself before
	// the rest of the startup sequence; registry writes that need Raft
	// are exercised in TestCreateAndDeleteVolumeRoundTrips.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Accepting() {
		t.Fatal("expected daemon to be accepting after Start")
	}

	all := d.Events().Query(events.Filter{})
	if len(all) == 0 {
		t.Fatal("expected at least a daemon/start event")
	}
}

func TestDaemonShutdownStopsAccepting(t *testing.T) {
	d := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if d.Accepting() {
		t.Fatal("expected daemon to stop accepting after Shutdown")
	}
}

func TestCreateAndDeleteVolumeRoundTrips(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.cluster.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer d.cluster.Shutdown()

	v, err := d.Registries().CreateVolume("data", "local", "/var/lib/nexuscore/volumes/data", nil)
	if err != nil {
		t.Fatalf("CreateVolume: %v", err)
	}

	got, err := d.Registries().GetVolume(v.ID)
	if err != nil {
		t.Fatalf("GetVolume: %v", err)
	}
	if got.Name != "data" {
		t.Fatalf("got name %q, want data", got.Name)
	}

	if err := d.Registries().DeleteVolume(v.ID); err != nil {
		t.Fatalf("DeleteVolume: %v", err)
	}
	if _, err := d.Registries().GetVolume(v.ID); err != storage.ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound after delete", err)
	}
}

func TestHealthMonitorTracksUnhealthyAfterRetries(t *testing.T) {
	d := newTestDaemon(t)
	check := types.HealthCheck{
		Type:     types.HealthCheckTCP,
		Endpoint: "127.0.0.1:1", // nothing listening -> always fails
		Interval: 5 * time.Millisecond,
		Timeout:  5 * time.Millisecond,
		Retries:  1,
	}
	d.RegisterHealthCheck("c1", check)
	defer d.Health().Unwatch("c1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := d.Health().Status("c1"); ok && !status.Healthy {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected health status to become unhealthy")
}
