package distsched

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/log"
	"github.com/nexusshell/nexuscore/pkg/types"
)

// Policy selects which allocation algorithm Manager.Allocate uses.
type Policy int

const (
	RoundRobin Policy = iota
	LeastLoaded
	ResourceFit
	WeightedRandom
	LocalityAware
)

func (p Policy) String() string {
	switch p {
	case RoundRobin:
		return "round_robin"
	case LeastLoaded:
		return "least_loaded"
	case ResourceFit:
		return "resource_fit"
	case WeightedRandom:
		return "weighted_random"
	case LocalityAware:
		return "locality_aware"
	default:
		return "unknown"
	}
}

// Config configures a Manager.
type Config struct {
	Policy            Policy
	AllocationTimeout time.Duration
	AllowPreemption   bool
	OvercommitFactor  float64
}

// DefaultConfig mirrors the reference resource manager's defaults.
func DefaultConfig() Config {
	return Config{
		Policy:            LeastLoaded,
		AllocationTimeout: 30 * time.Second,
		AllowPreemption:   false,
		OvercommitFactor:  1.0,
	}
}

// Manager is the distributed resource manager: a node registry plus
// allocation bookkeeping.
type Manager struct {
	cfg    Config
	logger zerolog.Logger

	mu          sync.RWMutex
	nodes       map[string]*nodeState
	allocations map[string]*Allocation
	rrIndex     int
}

func New(cfg Config) *Manager {
	return &Manager{
		cfg:         cfg,
		logger:      log.WithComponent("distsched"),
		nodes:       make(map[string]*nodeState),
		allocations: make(map[string]*Allocation),
	}
}

// RegisterNode adds or replaces a node's tracked resource state.
func (m *Manager) RegisterNode(n types.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[n.ID] = newNodeState(n)
	nodesRegistered.Set(float64(len(m.nodes)))
	m.logger.Info().Str("node_id", n.ID).Msg("node registered")
}

// UnregisterNode drops a node and releases every allocation assigned to it.
func (m *Manager) UnregisterNode(nodeID string) error {
	m.mu.Lock()
	if _, ok := m.nodes[nodeID]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotRegistered, nodeID)
	}
	var toRelease []string
	for taskID, a := range m.allocations {
		if a.NodeID == nodeID {
			toRelease = append(toRelease, taskID)
		}
	}
	delete(m.nodes, nodeID)
	nodesRegistered.Set(float64(len(m.nodes)))
	m.mu.Unlock()

	for _, taskID := range toRelease {
		_ = m.Release(taskID)
	}
	return nil
}

// UpdateNodeLoad records a freshly observed load sample for a node.
func (m *Manager) UpdateNodeLoad(nodeID string, load types.NodeLoad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotRegistered, nodeID)
	}
	ns.node.Load = load
	ns.lastUpdated = time.Now()
	return nil
}

// Allocate places a task on a node per the configured policy, honouring
// affinity/anti-affinity first. If no node fits and preemption is allowed,
// it attempts to free a lower-priority allocation and retries once.
func (m *Manager) Allocate(taskID string, req *Requirements) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodeID, err := m.selectNode(req)
	if err != nil && m.cfg.AllowPreemption {
		if m.tryPreempt(req) {
			nodeID, err = m.selectNode(req)
		}
	}
	if err != nil {
		allocationFailures.WithLabelValues(m.cfg.Policy.String()).Inc()
		return "", err
	}

	ns := m.nodes[nodeID]
	ns.assign(taskID, req)
	m.allocations[taskID] = &Allocation{
		TaskID:     taskID,
		NodeID:     nodeID,
		Timestamp:  time.Now(),
		Resources:  req.Resources,
		TimeoutSec: req.TimeoutSec,
	}
	allocationsActive.Set(float64(len(m.allocations)))
	return nodeID, nil
}

// Release reverses a prior Allocate.
func (m *Manager) Release(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked(taskID)
}

func (m *Manager) releaseLocked(taskID string) error {
	a, ok := m.allocations[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAllocationNotFound, taskID)
	}
	if ns, ok := m.nodes[a.NodeID]; ok {
		req := &Requirements{Resources: a.Resources}
		ns.release(req)
		delete(ns.assignedTask, taskID)
	}
	delete(m.allocations, taskID)
	allocationsActive.Set(float64(len(m.allocations)))
	return nil
}

// CleanupExpiredAllocations releases every allocation whose TTL has
// elapsed, returning the count released.
func (m *Manager) CleanupExpiredAllocations() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var expired []string
	for taskID, a := range m.allocations {
		if a.expired(now) {
			expired = append(expired, taskID)
		}
	}
	for _, taskID := range expired {
		if err := m.releaseLocked(taskID); err != nil {
			m.logger.Warn().Str("task_id", taskID).Err(err).Msg("failed to release expired allocation")
		}
	}
	return len(expired)
}

// GetAllocation returns the allocation for a task, if any.
func (m *Manager) GetAllocation(taskID string) (Allocation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.allocations[taskID]
	if !ok {
		return Allocation{}, false
	}
	return *a, true
}

// NodeTasks returns the task ids currently assigned to a node.
func (m *Manager) NodeTasks(nodeID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.nodes[nodeID]
	if !ok {
		return nil
	}
	tasks := make([]string, 0, len(ns.assignedTask))
	for t := range ns.assignedTask {
		tasks = append(tasks, t)
	}
	return tasks
}

// ClusterUsage sums capacity/usage across every registered node per
// resource type.
func (m *Manager) ClusterUsage() map[ResourceType][2]Quantity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	usage := make(map[ResourceType][2]Quantity)
	for _, ns := range m.nodes {
		for rt, c := range ns.capacity {
			entry := usage[rt]
			entry[0] = entry[0].Add(c)
			usage[rt] = entry
		}
		for rt, u := range ns.usage {
			entry := usage[rt]
			entry[1] = entry[1].Add(u)
			usage[rt] = entry
		}
	}
	return usage
}

func (m *Manager) selectNode(req *Requirements) (string, error) {
	if len(m.nodes) == 0 {
		return "", ErrNoAvailableNode
	}
	switch m.cfg.Policy {
	case RoundRobin:
		return m.selectRoundRobin(req)
	case LeastLoaded:
		return m.selectLeastLoaded(req)
	case ResourceFit:
		return m.selectResourceFit(req)
	case WeightedRandom:
		// Placeholder delegating to LeastLoaded, per the platform contract.
		return m.selectLeastLoaded(req)
	case LocalityAware:
		// Placeholder delegating to ResourceFit, per the platform contract.
		return m.selectResourceFit(req)
	default:
		return m.selectLeastLoaded(req)
	}
}

func (m *Manager) selectRoundRobin(req *Requirements) (string, error) {
	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m.rrIndex = (m.rrIndex + 1) % len(ids)
	for i := 0; i < len(ids); i++ {
		idx := (m.rrIndex + i) % len(ids)
		id := ids[idx]
		ns := m.nodes[id]
		if !passesAffinity(id, req) {
			continue
		}
		if ns.hasEnoughResources(req) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: round robin found no fit", ErrRequirementsUnsatisfiable)
}

func (m *Manager) selectLeastLoaded(req *Requirements) (string, error) {
	type candidate struct {
		id    string
		score float64
	}
	var candidates []candidate
	for id, ns := range m.nodes {
		if !passesAffinity(id, req) || !ns.hasEnoughResources(req) {
			continue
		}
		candidates = append(candidates, candidate{id: id, score: ns.loadScore()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: least loaded found no fit", ErrRequirementsUnsatisfiable)
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].score < candidates[b].score })
	return candidates[0].id, nil
}

// selectResourceFit picks the node with the smallest positive surplus
// (best-fit), minimizing wasted capacity.
func (m *Manager) selectResourceFit(req *Requirements) (string, error) {
	type candidate struct {
		id    string
		score float64
	}
	var candidates []candidate
	for id, ns := range m.nodes {
		if !passesAffinity(id, req) || !ns.hasEnoughResources(req) {
			continue
		}
		avail := ns.availableResources()
		var fit float64
		for rt, need := range req.Resources {
			fit += float64(avail[rt]) - float64(need)
		}
		candidates = append(candidates, candidate{id: id, score: fit})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: resource fit found no fit", ErrRequirementsUnsatisfiable)
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].score < candidates[b].score })
	return candidates[0].id, nil
}

// tryPreempt releases one existing allocation, the first that map
// iteration yields. Allocations record no priority, so the victim is not
// chosen by priority and req's priority is not compared against it.
// Best-effort; the caller is responsible for handling the preempted
// task's failure.
func (m *Manager) tryPreempt(req *Requirements) bool {
	var victim string
	for taskID := range m.allocations {
		victim = taskID
		break
	}
	if victim == "" {
		return false
	}
	m.logger.Warn().Str("task_id", victim).Str("reason", ResourceShortage.String()).Msg("preempting allocation")
	if m.releaseLocked(victim) != nil {
		return false
	}
	preemptions.Inc()
	return true
}
