package distsched

import (
	"testing"
	"time"

	"github.com/nexusshell/nexuscore/pkg/types"
)

func testNode(id string, cores int, memBytes int64) types.Node {
	return types.Node{
		ID:      id,
		Address: "10.0.0.1",
		Status:  types.NodeStatusHealthy,
		Capabilities: &types.NodeResources{
			CPUCores:         cores,
			MemoryBytes:      memBytes,
			DiskBytes:        100 << 30,
			NetworkBandwidth: 1 << 30,
		},
	}
}

// I4: allocate binds a task to a node whose available capacity covers the
// requirement; release reverses it.
func TestAllocateAndRelease(t *testing.T) {
	m := New(DefaultConfig())
	m.RegisterNode(testNode("n1", 4, 8<<30))

	req := NewRequirements().WithResource(ResourceCPU, 2).WithResource(ResourceMemory, 4<<30)
	nodeID, err := m.Allocate("task-1", req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if nodeID != "n1" {
		t.Fatalf("nodeID = %q, want n1", nodeID)
	}

	if _, ok := m.GetAllocation("task-1"); !ok {
		t.Fatal("expected allocation to be recorded")
	}

	if err := m.Release("task-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := m.GetAllocation("task-1"); ok {
		t.Fatal("expected allocation to be gone after release")
	}
}

func TestAllocateFailsWhenNoNodeFits(t *testing.T) {
	m := New(DefaultConfig())
	m.RegisterNode(testNode("n1", 2, 2<<30))

	req := NewRequirements().WithResource(ResourceCPU, 4)
	if _, err := m.Allocate("task-1", req); err == nil {
		t.Fatal("expected allocation failure")
	}
}

func TestAllocateRespectsNodeAffinity(t *testing.T) {
	m := New(DefaultConfig())
	m.RegisterNode(testNode("n1", 4, 8<<30))
	m.RegisterNode(testNode("n2", 4, 8<<30))

	req := NewRequirements().WithResource(ResourceCPU, 1).WithNodeAffinity("n2")
	nodeID, err := m.Allocate("task-1", req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if nodeID != "n2" {
		t.Fatalf("nodeID = %q, want n2", nodeID)
	}
}

func TestAllocateRespectsAntiAffinity(t *testing.T) {
	m := New(DefaultConfig())
	m.RegisterNode(testNode("n1", 4, 8<<30))

	req := NewRequirements().WithResource(ResourceCPU, 1).WithNodeAntiAffinity("n1")
	if _, err := m.Allocate("task-1", req); err == nil {
		t.Fatal("expected allocation to fail, n1 is anti-affine")
	}
}

func TestLeastLoadedPicksLowerUtilization(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = LeastLoaded
	m := New(cfg)
	m.RegisterNode(testNode("busy", 10, 10<<30))
	m.RegisterNode(testNode("idle", 10, 10<<30))

	// load up "busy" first.
	if _, err := m.Allocate("pre", NewRequirements().WithResource(ResourceCPU, 8)); err != nil {
		t.Fatalf("pre-allocate: %v", err)
	}
	allocated, _ := m.GetAllocation("pre")

	req := NewRequirements().WithResource(ResourceCPU, 1)
	nodeID, err := m.Allocate("task-1", req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if nodeID == allocated.NodeID {
		t.Fatalf("expected the less loaded node, got %q again", nodeID)
	}
}

func TestResourceFitPicksBestFit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = ResourceFit
	m := New(cfg)
	m.RegisterNode(testNode("big", 16, 32<<30))
	m.RegisterNode(testNode("small", 2, 4<<30))

	req := NewRequirements().WithResource(ResourceCPU, 1)
	nodeID, err := m.Allocate("task-1", req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if nodeID != "small" {
		t.Fatalf("nodeID = %q, want small (tightest fit)", nodeID)
	}
}

// S4: expired allocations are swept.
func TestCleanupExpiredAllocations(t *testing.T) {
	m := New(DefaultConfig())
	m.RegisterNode(testNode("n1", 4, 8<<30))

	req := NewRequirements().WithResource(ResourceCPU, 1).WithTimeout(0)
	if _, err := m.Allocate("task-1", req); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	m.mu.Lock()
	m.allocations["task-1"].TimeoutSec = 1
	m.allocations["task-1"].Timestamp = m.allocations["task-1"].Timestamp.Add(-2 * time.Second)
	m.mu.Unlock()

	n := m.CleanupExpiredAllocations()
	if n != 1 {
		t.Fatalf("cleaned up %d allocations, want 1", n)
	}
	if _, ok := m.GetAllocation("task-1"); ok {
		t.Fatal("expected expired allocation to be released")
	}
}

func TestUnregisterNodeReleasesItsAllocations(t *testing.T) {
	m := New(DefaultConfig())
	m.RegisterNode(testNode("n1", 4, 8<<30))

	if _, err := m.Allocate("task-1", NewRequirements().WithResource(ResourceCPU, 1)); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := m.UnregisterNode("n1"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, ok := m.GetAllocation("task-1"); ok {
		t.Fatal("expected allocation released on node unregister")
	}
}

func TestUsageRatioSaturatesAtZeroAndOne(t *testing.T) {
	var q Quantity = 10
	if q.Subtract(20) != 0 {
		t.Fatal("subtraction should saturate at zero")
	}
	if q.UsageRatio(5) != 1.0 {
		t.Fatal("usage ratio should saturate at 1.0")
	}
	if Quantity(0).UsageRatio(0) != 0 {
		t.Fatal("usage ratio over zero capacity should be 0")
	}
}
