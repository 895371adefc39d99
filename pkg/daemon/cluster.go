package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/log"
	"github.com/nexusshell/nexuscore/pkg/metrics"
	"github.com/nexusshell/nexuscore/pkg/storage"
)

// command is the Raft log entry envelope: an operation name plus its
// JSON-encoded argument, applied to the registries FSM in commit order.
type command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

const (
	opCreateVolume  = "create_volume"
	opDeleteVolume  = "delete_volume"
	opCreateNetwork = "create_network"
	opDeleteNetwork = "delete_network"
	opCreateImage   = "create_image"
	opDeleteImage   = "delete_image"
)

// registriesFSM is the Raft finite-state machine over the daemon's
// top-level registries (volumes, networks, images). Every mutation to
// storage.Store that must be consistent across a cluster goes through
// Raft.Apply with a command envelope instead of calling the store
// directly, so a single-node deployment and a multi-node one share
// exactly one write path.
type registriesFSM struct {
	mu    sync.RWMutex
	store storage.Store
}

func newRegistriesFSM(store storage.Store) *registriesFSM {
	return &registriesFSM{store: store}
}

// Apply applies one committed Raft log entry to the store.
func (f *registriesFSM) Apply(l *raft.Log) interface{} {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RaftApplyDuration)

	var cmd command
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case opCreateVolume:
		var v storage.Volume
		if err := json.Unmarshal(cmd.Data, &v); err != nil {
			return err
		}
		return f.store.CreateVolume(&v)
	case opDeleteVolume:
		var id string
		if err := json.Unmarshal(cmd.Data, &id); err != nil {
			return err
		}
		return f.store.DeleteVolume(id)
	case opCreateNetwork:
		var n storage.Network
		if err := json.Unmarshal(cmd.Data, &n); err != nil {
			return err
		}
		return f.store.CreateNetwork(&n)
	case opDeleteNetwork:
		var id string
		if err := json.Unmarshal(cmd.Data, &id); err != nil {
			return err
		}
		return f.store.DeleteNetwork(id)
	case opCreateImage:
		var img storage.ImageRecord
		if err := json.Unmarshal(cmd.Data, &img); err != nil {
			return err
		}
		return f.store.CreateImage(&img)
	case opDeleteImage:
		var id string
		if err := json.Unmarshal(cmd.Data, &id); err != nil {
			return err
		}
		return f.store.DeleteImage(id)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// Snapshot captures the full registry contents for Raft's log compaction.
func (f *registriesFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	volumes, err := f.store.ListVolumes()
	if err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}
	networks, err := f.store.ListNetworks()
	if err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	images, err := f.store.ListImages()
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	return &registriesSnapshot{Volumes: volumes, Networks: networks, Images: images}, nil
}

// Restore replaces the store's contents with a previously persisted
// snapshot, used when a node rejoins or replays its local log.
func (f *registriesFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snap registriesSnapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// clear existing records so the snapshot replaces rather than merges
	oldVolumes, _ := f.store.ListVolumes()
	for _, v := range oldVolumes {
		_ = f.store.DeleteVolume(v.ID)
	}
	oldNetworks, _ := f.store.ListNetworks()
	for _, n := range oldNetworks {
		_ = f.store.DeleteNetwork(n.ID)
	}
	oldImages, _ := f.store.ListImages()
	for _, img := range oldImages {
		_ = f.store.DeleteImage(img.ID)
	}

	for _, v := range snap.Volumes {
		if err := f.store.CreateVolume(v); err != nil {
			return fmt.Errorf("restore volume %s: %w", v.ID, err)
		}
	}
	for _, n := range snap.Networks {
		if err := f.store.CreateNetwork(n); err != nil {
			return fmt.Errorf("restore network %s: %w", n.ID, err)
		}
	}
	for _, img := range snap.Images {
		if err := f.store.CreateImage(img); err != nil {
			return fmt.Errorf("restore image %s: %w", img.ID, err)
		}
	}
	return nil
}

type registriesSnapshot struct {
	Volumes  []*storage.Volume      `json:"volumes"`
	Networks []*storage.Network     `json:"networks"`
	Images   []*storage.ImageRecord `json:"images"`
}

func (s *registriesSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

func (s *registriesSnapshot) Release() {}

// Cluster owns the Raft group that replicates registry writes across
// nodes. A single-node deployment bootstraps itself as its own cluster;
// this is how the daemon stays correct under both topologies without a
// second write path.
type Cluster struct {
	nodeID   string
	bindAddr string
	dataDir  string
	logger   zerolog.Logger

	fsm  *registriesFSM
	raft *raft.Raft
}

// NewCluster constructs a Cluster bound to store but does not start
// Raft; call Bootstrap to stand up a new single-node cluster. There is no
// way to attach to an existing leader.
func NewCluster(nodeID, bindAddr, dataDir string, store storage.Store) *Cluster {
	return &Cluster{
		nodeID:   nodeID,
		bindAddr: bindAddr,
		dataDir:  dataDir,
		logger:   log.WithComponent("cluster"),
		fsm:      newRegistriesFSM(store),
	}
}

func (c *Cluster) raftConfig() *raft.Config {
	cfg := raft.DefaultConfig()
	cfg.LocalID = raft.ServerID(c.nodeID)
	// Tuned for LAN/edge failover rather than Raft's WAN-conservative
	// defaults (HeartbeatTimeout=1s, ElectionTimeout=1s,
	// LeaderLeaseTimeout=500ms).
	cfg.HeartbeatTimeout = 500 * time.Millisecond
	cfg.ElectionTimeout = 500 * time.Millisecond
	cfg.CommitTimeout = 50 * time.Millisecond
	cfg.LeaderLeaseTimeout = 250 * time.Millisecond
	return cfg
}

func (c *Cluster) newTransport() (*raft.NetworkTransport, error) {
	addr, err := net.ResolveTCPAddr("tcp", c.bindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve bind address: %w", err)
	}
	transport, err := raft.NewTCPTransport(c.bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	return transport, nil
}

func (c *Cluster) newRaft() (*raft.Raft, *raft.NetworkTransport, error) {
	transport, err := c.newTransport()
	if err != nil {
		return nil, nil, err
	}

	snapshotStore, err := raft.NewFileSnapshotStore(c.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(c.dataDir, "raft-log.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(c.dataDir, "raft-stable.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("create stable store: %w", err)
	}

	r, err := raft.NewRaft(c.raftConfig(), c.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, nil, fmt.Errorf("create raft: %w", err)
	}
	return r, transport, nil
}

// Bootstrap starts a new single-node cluster rooted at this node.
func (c *Cluster) Bootstrap() error {
	r, transport, err := c.newRaft()
	if err != nil {
		return err
	}
	c.raft = r

	cfg := raft.Configuration{
		Servers: []raft.Server{{ID: raft.ServerID(c.nodeID), Address: transport.LocalAddr()}},
	}
	if err := r.BootstrapCluster(cfg).Error(); err != nil {
		return fmt.Errorf("bootstrap cluster: %w", err)
	}
	c.logger.Info().Str("node_id", c.nodeID).Msg("cluster bootstrapped")
	c.reportState()
	return nil
}

// reportState refreshes the Raft gauges this package exposes through
// pkg/metrics; called after every state-changing Raft operation rather
// than on a poll loop, since Apply/Bootstrap/Shutdown already know
// exactly when the state moved.
func (c *Cluster) reportState() {
	if c.raft == nil {
		return
	}
	if c.IsLeader() {
		metrics.RaftLeader.Set(1)
	} else {
		metrics.RaftLeader.Set(0)
	}
	metrics.RaftLogIndex.Set(float64(c.raft.LastIndex()))
	metrics.RaftAppliedIndex.Set(float64(c.raft.AppliedIndex()))
	metrics.RaftPeers.Set(float64(len(c.raft.GetConfiguration().Configuration().Servers)))
}

// isAlreadyBootstrapped reports whether err is raft's ErrCantBootstrap,
// returned when BootstrapCluster is called against a data directory that
// already has a non-empty log — i.e. a restart, not a first start.
func isAlreadyBootstrapped(err error) bool {
	return err != nil && errors.Is(err, raft.ErrCantBootstrap)
}

// IsLeader reports whether this node currently holds Raft leadership.
// Multi-node Join/leave membership changes are out of scope for this
// core (the daemon's registries are single-writer today; Join would
// require a leader-forwarding RPC this daemon's transport does not yet
// implement).
func (c *Cluster) IsLeader() bool {
	return c.raft != nil && c.raft.State() == raft.Leader
}

// Apply proposes a committed write through Raft and blocks until it is
// applied to the FSM (or the default apply timeout elapses).
func (c *Cluster) Apply(op string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", op, err)
	}
	cmd, err := json.Marshal(command{Op: op, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	timer := metrics.NewTimer()
	future := c.raft.Apply(cmd, 5*time.Second)
	err = future.Error()
	timer.ObserveDuration(metrics.RaftCommitDuration)
	if err != nil {
		return fmt.Errorf("apply %s: %w", op, err)
	}
	if fsmErr, ok := future.Response().(error); ok && fsmErr != nil {
		return fsmErr
	}
	c.reportState()
	return nil
}

// Shutdown blocks until the Raft instance has released its resources.
func (c *Cluster) Shutdown() error {
	if c.raft == nil {
		return nil
	}
	err := c.raft.Shutdown().Error()
	metrics.RaftLeader.Set(0)
	return err
}
