package distsched

import "errors"

var (
	ErrNoAvailableNode          = errors.New("distsched: no available node")
	ErrRequirementsUnsatisfiable = errors.New("distsched: requirements unsatisfiable")
	ErrAllocationNotFound       = errors.New("distsched: allocation not found")
	ErrNodeNotRegistered        = errors.New("distsched: node not registered")
)
