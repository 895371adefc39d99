package runtime

import (
	"fmt"
	"time"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Status is a container's position in the lifecycle state machine:
//
//	Created -> Running -> {Paused <-> Running} -> Stopping -> Exited
type Status string

const (
	StatusCreated  Status = "created"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusStopping Status = "stopping"
	StatusExited   Status = "exited"
)

// Resources is the subset of an OCI resource spec the scheduler and
// the caller of update() care about.
type Resources struct {
	CPULimit    float64 // cores; converted to CPU shares + CFS quota
	MemoryLimit int64   // bytes
}

// Spec is the input to Create: the OCI bundle reference plus the optional
// pid-file and console-socket paths named in the create() contract.
type Spec struct {
	ID            string
	Image         string
	Env           []string
	Args          []string
	Resources     *Resources
	Mounts        []specs.Mount
	PidFile       string
	ConsoleSocket string
}

// State is the OCI-like persisted view of a container, serialized at
// {root}/containers/{id}/config.json on every lifecycle transition.
type State struct {
	ID            string        `json:"id"`
	Bundle        string        `json:"bundle"`
	Status        Status        `json:"status"`
	Pid           int           `json:"pid"`
	ExitCode      int           `json:"exit_code"`
	PidFile       string        `json:"pid_file,omitempty"`
	ConsoleSocket string        `json:"console_socket,omitempty"`
	Resources     *Resources    `json:"resources,omitempty"`
	Mounts        []specs.Mount `json:"mounts,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// terminal reports whether no further lifecycle transition is possible.
func (s Status) terminal() bool {
	return s == StatusExited
}

// validTransitions enumerates the operation -> allowed-source-states table
// the lifecycle machine enforces. kill is deliberately absent: it's allowed
// from any non-terminal state, checked separately.
var validTransitions = map[string][]Status{
	"start":  {StatusCreated},
	"pause":  {StatusRunning},
	"resume": {StatusPaused},
	"exec":   {StatusRunning},
	"update": {StatusCreated, StatusRunning, StatusPaused},
}

// validateTransition enforces the state machine for every contract
// operation except delete and kill, which have their own rules (kill is
// allowed from any non-terminal state; delete rejects a running container
// unless force is set).
func validateTransition(current Status, op string) error {
	allowed, ok := validTransitions[op]
	if !ok {
		return nil
	}
	for _, a := range allowed {
		if current == a {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s from state %q", ErrInvalidState, op, current)
}

func validateKill(current Status) error {
	if current.terminal() {
		return fmt.Errorf("%w: cannot kill a container in terminal state %q", ErrInvalidState, current)
	}
	return nil
}

func validateDelete(current Status, force bool) error {
	if current == StatusRunning && !force {
		return fmt.Errorf("%w: container is running, delete requires force", ErrInvalidState)
	}
	return nil
}
