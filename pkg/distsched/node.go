package distsched

import (
	"time"

	"github.com/nexusshell/nexuscore/pkg/types"
)

// nodeState is the manager's internal view of one node: total capacity,
// current usage, and the task ids assigned to it.
type nodeState struct {
	node         types.Node
	capacity     map[ResourceType]Quantity
	usage        map[ResourceType]Quantity
	assignedTask map[string]bool
	lastUpdated  time.Time
}

func newNodeState(n types.Node) *nodeState {
	capacity := make(map[ResourceType]Quantity, 4)
	if n.Capabilities != nil {
		capacity[ResourceCPU] = Quantity(n.Capabilities.CPUCores)
		capacity[ResourceMemory] = Quantity(n.Capabilities.MemoryBytes)
		capacity[ResourceDiskSpace] = Quantity(n.Capabilities.DiskBytes)
		capacity[ResourceNetworkBandwidth] = Quantity(n.Capabilities.NetworkBandwidth)
	}
	return &nodeState{
		node:         n,
		capacity:     capacity,
		usage:        make(map[ResourceType]Quantity, 4),
		assignedTask: make(map[string]bool),
		lastUpdated:  time.Now(),
	}
}

func (ns *nodeState) availableResources() map[ResourceType]Quantity {
	avail := make(map[ResourceType]Quantity, len(ns.capacity))
	for rt, total := range ns.capacity {
		avail[rt] = total.Subtract(ns.usage[rt])
	}
	return avail
}

func (ns *nodeState) hasEnoughResources(req *Requirements) bool {
	for rt, need := range req.Resources {
		total, ok := ns.capacity[rt]
		if !ok {
			return false
		}
		if total.Subtract(ns.usage[rt]) < need {
			return false
		}
	}
	return true
}

// loadScore = 0.4*cpu% + 0.3*mem% + 0.2*disk% + 0.1*net%.
func (ns *nodeState) loadScore() float64 {
	cpu := ns.usage[ResourceCPU].UsageRatio(ns.capacity[ResourceCPU])
	mem := ns.usage[ResourceMemory].UsageRatio(ns.capacity[ResourceMemory])
	disk := ns.usage[ResourceDiskSpace].UsageRatio(ns.capacity[ResourceDiskSpace])
	net := ns.usage[ResourceNetworkBandwidth].UsageRatio(ns.capacity[ResourceNetworkBandwidth])
	return 0.4*cpu + 0.3*mem + 0.2*disk + 0.1*net
}

func (ns *nodeState) assign(taskID string, req *Requirements) {
	for rt, q := range req.Resources {
		ns.usage[rt] = ns.usage[rt].Add(q)
	}
	ns.assignedTask[taskID] = true
}

func (ns *nodeState) release(req *Requirements) {
	for rt, q := range req.Resources {
		ns.usage[rt] = ns.usage[rt].Subtract(q)
	}
}

func passesAffinity(nodeID string, req *Requirements) bool {
	if len(req.NodeAffinity) > 0 && !req.NodeAffinity[nodeID] {
		return false
	}
	if req.NodeAntiAffinity[nodeID] {
		return false
	}
	return true
}

// Allocation binds a task id to the node it was placed on.
type Allocation struct {
	TaskID      string
	NodeID      string
	Timestamp   time.Time
	Resources   map[ResourceType]Quantity
	TimeoutSec  uint64
}

func (a Allocation) expired(now time.Time) bool {
	if a.TimeoutSec == 0 {
		return false
	}
	return now.Sub(a.Timestamp) > time.Duration(a.TimeoutSec)*time.Second
}

// PreemptionReason explains why an allocation was forcibly released.
type PreemptionReason int

const (
	HigherPriorityTask PreemptionReason = iota
	ResourceShortage
	NodeFailure
	SystemRequested
)

func (r PreemptionReason) String() string {
	switch r {
	case HigherPriorityTask:
		return "higher_priority_task"
	case ResourceShortage:
		return "resource_shortage"
	case NodeFailure:
		return "node_failure"
	case SystemRequested:
		return "system_requested"
	default:
		return "unknown"
	}
}
