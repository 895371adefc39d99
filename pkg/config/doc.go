/*
Package config loads and holds NexusShell's daemon configuration tree.

Every in-process component already defines its own Config/DefaultConfig
(pkg/asyncruntime, pkg/distsched, pkg/network, pkg/registry, pkg/events,
...); this package's Config simply aggregates those, loaded from a single
YAML file, so cmd/nexusd has one thing to pass to pkg/daemon rather than
wiring a dozen flags by hand.

# Live reconfiguration

Runtime wraps a Config behind an atomic.Pointer so a running daemon can
swap its entire configuration tree without taking a lock on every read:
an immutable Config is passed into each component at construction, and
reconfiguration is an atomic swap rather than a hidden global singleton.

# Usage

	cfg, err := config.Load("/etc/nexuscore/config.yaml")
	if err != nil {
		log.Fatal(err)
	}
	rt := config.NewRuntime(cfg)

	d, err := daemon.New(rt.Current(), deps)
	...
	rt.Swap(updated)
*/
package config
