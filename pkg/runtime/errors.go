package runtime

import "errors"

var (
	// ErrNotFound is returned when a container id has no known state.
	ErrNotFound = errors.New("runtime: container not found")

	// ErrInvalidState is returned when an operation is attempted from a
	// state the container lifecycle machine does not allow it from.
	ErrInvalidState = errors.New("runtime: invalid container state for operation")

	// ErrRuntimeFailed wraps an underlying containerd/OCI failure.
	ErrRuntimeFailed = errors.New("runtime: runtime operation failed")

	// ErrUnsupportedFeature is returned for operations that require a
	// Linux host (namespace/cgroup introspection) when run elsewhere.
	ErrUnsupportedFeature = errors.New("runtime: unsupported on this platform")
)
