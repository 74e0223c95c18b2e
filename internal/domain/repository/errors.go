package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned on unique-constraint violations.
	ErrDuplicate = errors.New("duplicate")

	// ErrInvalidToken covers missing, expired and already-used tokens alike.
	// The cases are deliberately indistinguishable to callers.
	ErrInvalidToken = errors.New("invalid token")
)
