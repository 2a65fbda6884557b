package vecstore

import "errors"

var (
	// ErrNotFound is returned when a memory does not exist in the namespace.
	ErrNotFound = errors.New("memory not found")
)
