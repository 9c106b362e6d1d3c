package stowage

import "errors"

var (
	// ErrNotFound is returned when a path does not exist in the store
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingConfiguration is returned when a store lacks a required option
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrUnknownBackend is returned when a registry has no constructor for a label
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrUnscopedClear is returned when clearing would remove everything in a bucket or root
	ErrUnscopedClear = errors.New("refusing to clear unscoped store")
)
