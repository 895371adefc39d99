package registry

import "errors"

var (
	ErrAuthentication = errors.New("registry: authentication failed")
	ErrNotFound        = errors.New("registry: not found")
	ErrNetwork         = errors.New("registry: network error")
	ErrSerialization   = errors.New("registry: serialization error")
)
