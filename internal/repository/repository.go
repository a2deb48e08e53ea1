// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory
// and contain no business logic.
package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("record already exists")
)
