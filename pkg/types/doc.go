// Package types defines the low-level, cross-component data shapes for
// NexusShell's execution substrate: node topology and resources (consumed by
// pkg/distsched), port/volume mappings and health-check vocabulary (consumed
// by pkg/runtime and pkg/network), and network configuration (consumed by
// pkg/network). Component-specific aggregates — Job, Pipeline, Container —
// live in their own packages; this package exists so those packages share a
// common, cycle-free vocabulary instead of redefining it.
package types
