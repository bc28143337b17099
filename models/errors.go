package models

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
	// ErrConflict is returned by the store when a write violates a
	// uniqueness or exclusion constraint.
	ErrConflict = errors.New("conflict")
)
