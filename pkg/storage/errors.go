package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write would violate a uniqueness
	// constraint (duplicate login or product name).
	ErrConflict = errors.New("record already exists")
)
