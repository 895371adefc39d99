package job

import "errors"

var (
	// ErrProcessSpawnFailed is returned when the underlying os/exec.Start
	// call itself fails (binary not found, permission denied, ...).
	ErrProcessSpawnFailed = errors.New("job: process spawn failed")

	// ErrResourceLimitExceeded names the resource-limit failure kind. No
	// function in this package returns it: the supervisor's limit check
	// records the exceeded limit as a reason string in Job.ErrorDetails.
	ErrResourceLimitExceeded = errors.New("job: resource limit exceeded")

	// ErrInvalidStateTransition is returned when a caller or the supervisor
	// attempts a transition not present in the job state machine, including
	// any attempt to leave a terminal state.
	ErrInvalidStateTransition = errors.New("job: invalid state transition")
)
