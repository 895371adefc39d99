package events

import (
	"time"

	"github.com/google/uuid"
)

// Type is the broad category of an Event.
type Type string

const (
	TypeContainer Type = "container"
	TypeImage     Type = "image"
	TypeVolume    Type = "volume"
	TypeNetwork   Type = "network"
	TypeDaemon    Type = "daemon"
	TypePlugin    Type = "plugin"
	TypeNode      Type = "node"
	TypeService   Type = "service"
	TypeSecret    Type = "secret"
	TypeConfig    Type = "config"
)

// Actor identifies the object an event is about, plus free-form
// attributes about it at the time of the event (e.g. image reference).
type Actor struct {
	ID         string
	Attributes map[string]string
}

// Event is a single immutable record of a state-changing operation,
// emitted by any component and stored/queried by the daemon.
type Event struct {
	ID         string
	Timestamp  time.Time
	Type       Type
	Action     string
	Actor      Actor
	Scope      string
	Attributes map[string]string
}

// New builds an Event with a fresh id and the current timestamp.
func New(typ Type, action string, actor Actor, scope string, attrs map[string]string) Event {
	return Event{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		Type:       typ,
		Action:     action,
		Actor:      actor,
		Scope:      scope,
		Attributes: attrs,
	}
}
