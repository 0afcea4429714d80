package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a property whose ID already exists.
	ErrDuplicateKey = errors.New("duplicate key")
)
