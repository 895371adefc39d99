package daemon

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/config"
	"github.com/nexusshell/nexuscore/pkg/events"
	"github.com/nexusshell/nexuscore/pkg/log"
	"github.com/nexusshell/nexuscore/pkg/runtime"
	"github.com/nexusshell/nexuscore/pkg/storage"
	"github.com/nexusshell/nexuscore/pkg/types"
)

// Daemon is the process that hosts a singleton of every other component.
// It owns the daemon-local top-level registries (Registries),
// the event bus, the health monitor, and the narrow runtime/network/
// registry-client dependencies it delegates actual container/image/
// network work to.
type Daemon struct {
	cfg config.Config

	runtime    ContainerRuntime
	network    NetworkManager
	registry   RegistryClient
	store      storage.Store
	cluster    *Cluster
	registries *Registries
	bus        *events.Bus
	health     *HealthMonitor
	logger     zerolog.Logger

	mu        sync.RWMutex
	accepting bool

	cancel context.CancelFunc
}

// Deps bundles the constructed component instances a Daemon wraps;
// separating this from Config lets daemon_test.go substitute fakes for
// runtime/network/registry without touching cfg.
type Deps struct {
	Runtime  ContainerRuntime
	Network  NetworkManager
	Registry RegistryClient
	Store    storage.Store
}

// New constructs a Daemon. Start must be called before it accepts work.
func New(cfg config.Config, deps Deps) (*Daemon, error) {
	if deps.Runtime == nil || deps.Network == nil || deps.Store == nil {
		return nil, fmt.Errorf("daemon: runtime, network and store dependencies are required")
	}

	bus := events.NewBus(cfg.Events)
	cluster := NewCluster(cfg.NodeID, cfg.RaftAddr, cfg.DataDir, deps.Store)

	d := &Daemon{
		cfg:        cfg,
		runtime:    deps.Runtime,
		network:    deps.Network,
		registry:   deps.Registry,
		store:      deps.Store,
		cluster:    cluster,
		registries: newRegistries(deps.Store, cluster, bus),
		bus:        bus,
		health:     newHealthMonitor(deps.Runtime, bus),
		logger:     log.WithComponent("daemon"),
	}
	return d, nil
}

// Registries exposes the daemon's volume/network/image registries for
// the transport router.
func (d *Daemon) Registries() *Registries { return d.registries }

// Events exposes the daemon's event bus for the transport router's
// System.Events stream and for Query/export.
func (d *Daemon) Events() *events.Bus { return d.bus }

// Health exposes the health monitor so the transport router's
// Container.Create path can register a check, and System/Container
// inspect calls can report current status.
func (d *Daemon) Health() *HealthMonitor { return d.health }

// Runtime exposes the container runtime for the transport router's
// Container RPC handlers.
func (d *Daemon) Runtime() ContainerRuntime { return d.runtime }

// Network exposes the network manager for the transport router's
// Network RPC handlers.
func (d *Daemon) Network() NetworkManager { return d.network }

// Registry exposes the registry client for the transport router's Image
// RPC handlers (Pull/Push/List tags).
func (d *Daemon) Registry() RegistryClient { return d.registry }

// Accepting reports whether the daemon is still admitting new RPC work.
func (d *Daemon) Accepting() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.accepting
}

// Start runs the startup sequence: init event bus → rehydrate containers
// from disk → initialize network bridge → start health monitors → begin
// accepting RPC. ctx's cancellation is what
// every background goroutine started here (the bus's retention sweep,
// each container's health probe loop) exits on.
func (d *Daemon) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// A fresh data directory bootstraps its own single-node cluster; a
	// data directory that already has a Raft log (a restart) recovers
	// its prior state instead of re-bootstrapping, which would fail
	// since the log store is no longer empty.
	if err := d.cluster.Bootstrap(); err != nil && !isAlreadyBootstrapped(err) {
		return fmt.Errorf("bootstrap cluster: %w", err)
	}

	// init event bus
	d.bus.Start(runCtx)

	// rehydrate containers from disk: pkg/runtime.ContainerdRuntime does
	// this internally during construction (its rehydrate() scans
	// {root}/containers/*/config.json), so by the time Start runs the
	// runtime already knows about every previously created container;
	// List is how the daemon re-discovers them to re-arm health checks
	// and re-attach networking below.
	states, err := d.runtime.List(runCtx, "")
	if err != nil {
		return fmt.Errorf("rehydrate containers: %w", err)
	}

	// initialize network bridge
	if err := d.initializeNetworkBridge(runCtx, states); err != nil {
		return fmt.Errorf("initialize network bridge: %w", err)
	}

	// start health monitors
	d.startHealthMonitors(runCtx, states)

	// begin accepting RPC
	d.mu.Lock()
	d.accepting = true
	d.mu.Unlock()

	d.bus.Publish(events.New(events.TypeDaemon, "start", events.Actor{ID: d.cfg.NodeID}, "", nil))
	d.logger.Info().Int("rehydrated_containers", len(states)).Msg("daemon started")
	return nil
}

// initializeNetworkBridge is a no-op: the bridge is created on demand by
// per-container setup at container create time. Containers that survived
// a restart already hold their network state (veth, IP) outside the
// daemon's process memory, so nothing is reattached here.
func (d *Daemon) initializeNetworkBridge(ctx context.Context, states []*runtime.State) error {
	return nil
}

func (d *Daemon) startHealthMonitors(ctx context.Context, states []*runtime.State) {
	// Health checks are supplied per-container at create time (the
	// Container.Create RPC); on daemon restart a rehydrated container
	// has no in-memory HealthCheck to resume, since containerd itself
	// has no notion of one. Re-registration is a caller responsibility
	// once the Container.Inspect RPC returns, matching the
	// "Container state file" contract which carries no health-check
	// field of its own.
}

// RegisterHealthCheck wires a container's configured HealthCheck into
// the health monitor, called from the Container.Create RPC path.
func (d *Daemon) RegisterHealthCheck(containerID string, check types.HealthCheck) {
	d.health.Watch(context.Background(), containerID, check)
}

// Shutdown runs the shutdown sequence: stop accepting new work → cancel
// in-flight tasks with grace → persist state → emit daemon/shutdown →
// exit. The grace period matches the runtime's 60s shutdown budget.
func (d *Daemon) Shutdown(ctx context.Context) error {
	start := time.Now()
	defer func() { shutdownDuration.Observe(time.Since(start).Seconds()) }()

	d.mu.Lock()
	d.accepting = false
	d.mu.Unlock()

	graceCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if d.cancel != nil {
		d.cancel() // stop the event bus sweep and every health probe loop
	}

	states, err := d.runtime.List(graceCtx, "")
	if err == nil {
		for _, st := range states {
			if st.Status == runtime.StatusRunning {
				if err := d.runtime.Kill(graceCtx, st.ID, syscall.SIGTERM); err != nil {
					d.logger.Warn().Str("container_id", st.ID).Err(err).Msg("graceful kill failed during shutdown")
				}
			}
		}
	}

	if err := d.cluster.Shutdown(); err != nil {
		d.logger.Warn().Err(err).Msg("cluster shutdown error")
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("store close error")
	}

	d.bus.Publish(events.New(events.TypeDaemon, "shutdown", events.Actor{ID: d.cfg.NodeID}, "", nil))
	d.logger.Info().Msg("daemon shut down")
	return nil
}
