package storage

import "errors"

var (
	ErrNotFound      = errors.New("storage: record not found")
	ErrAlreadyExists = errors.New("storage: record already exists")
	ErrStoreClosed   = errors.New("storage: store is closed")
)
