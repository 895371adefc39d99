package events

import "errors"

var ErrBusClosed = errors.New("events: bus is closed")
