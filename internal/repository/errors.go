package repository

import "errors"

var (
	// ErrNotFound signals an unknown entity id.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict signals an optimistic-write version mismatch: the
	// stored version differs from the version the caller read.
	ErrVersionConflict = errors.New("version conflict")
)
