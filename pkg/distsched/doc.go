/*
Package distsched implements the distributed resource manager: a node
registry with capacity/usage accounting, a set of allocation policies
(RoundRobin, LeastLoaded, ResourceFit, WeightedRandom, LocalityAware), a
best-effort preemption path, and a TTL expiry sweep for allocations.

	mgr := distsched.New(distsched.DefaultConfig())
	mgr.RegisterNode(node)
	nodeID, err := mgr.Allocate("task-1", reqs)
	...
	mgr.Release("task-1")
*/
package distsched
