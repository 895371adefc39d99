package remoteexec

import "errors"

var (
	ErrConnectionFailed     = errors.New("remoteexec: connection failed")
	ErrConnectionNotFound   = errors.New("remoteexec: connection not found")
	ErrConnectionClosed     = errors.New("remoteexec: connection closed")
	ErrAuthenticationFailed = errors.New("remoteexec: authentication failed")
	ErrCommandExecutionFailed = errors.New("remoteexec: command execution failed")
	ErrTimeout              = errors.New("remoteexec: timed out")
	ErrUnsupportedAuth      = errors.New("remoteexec: unsupported auth method")
)
