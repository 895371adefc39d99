package daemon

import "errors"

var (
	// ErrNotAccepting is returned by every RPC-facing operation once
	// Shutdown has begun stopping new work.
	ErrNotAccepting = errors.New("daemon: not accepting new work")

	// ErrUnknownVolume/Network mirror the "not found" error kind for the
	// daemon's own registries (container lookups themselves surface
	// pkg/runtime's own ErrNotFound).
	ErrUnknownVolume  = errors.New("daemon: unknown volume")
	ErrUnknownNetwork = errors.New("daemon: unknown network")
)
