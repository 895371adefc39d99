package distsched

// ResourceType names one dimension of node capacity.
type ResourceType int

const (
	ResourceCPU ResourceType = iota
	ResourceMemory
	ResourceDiskSpace
	ResourceNetworkBandwidth
	ResourceGPU
)

func (r ResourceType) String() string {
	switch r {
	case ResourceCPU:
		return "cpu"
	case ResourceMemory:
		return "memory"
	case ResourceDiskSpace:
		return "disk_space"
	case ResourceNetworkBandwidth:
		return "network_bandwidth"
	case ResourceGPU:
		return "gpu"
	default:
		return "unknown"
	}
}

// Quantity is a non-negative resource amount; arithmetic saturates at zero.
type Quantity float64

func (q Quantity) Add(other Quantity) Quantity { return q + other }

func (q Quantity) Subtract(other Quantity) Quantity {
	v := q - other
	if v < 0 {
		return 0
	}
	return v
}

func (q Quantity) Multiply(factor float64) Quantity {
	if factor < 0 {
		factor = 0
	}
	return Quantity(float64(q) * factor)
}

// UsageRatio returns min(1.0, q/capacity), or 0 if capacity <= 0.
func (q Quantity) UsageRatio(capacity Quantity) float64 {
	if capacity <= 0 {
		return 0
	}
	r := float64(q) / float64(capacity)
	if r > 1 {
		return 1
	}
	return r
}

// Requirements is what a task asks an allocation for.
type Requirements struct {
	Resources        map[ResourceType]Quantity
	TimeoutSec       uint64 // 0 = no TTL
	Priority         uint8  // 0-100
	NodeAffinity     map[string]bool
	NodeAntiAffinity map[string]bool
}

// NewRequirements returns an empty Requirements with priority 50.
func NewRequirements() *Requirements {
	return &Requirements{Resources: make(map[ResourceType]Quantity), Priority: 50}
}

func (r *Requirements) WithResource(rt ResourceType, q Quantity) *Requirements {
	r.Resources[rt] = q
	return r
}

func (r *Requirements) WithTimeout(sec uint64) *Requirements {
	r.TimeoutSec = sec
	return r
}

func (r *Requirements) WithPriority(p uint8) *Requirements {
	if p > 100 {
		p = 100
	}
	r.Priority = p
	return r
}

func (r *Requirements) WithNodeAffinity(nodes ...string) *Requirements {
	r.NodeAffinity = toSet(nodes)
	return r
}

func (r *Requirements) WithNodeAntiAffinity(nodes ...string) *Requirements {
	r.NodeAntiAffinity = toSet(nodes)
	return r
}

func toSet(nodes []string) map[string]bool {
	s := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		s[n] = true
	}
	return s
}
