package domain

import "errors"

var (
	// ErrValidation marks invalid caller input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing record.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a state transition rejected because of the record's current state.
	ErrConflict = errors.New("conflict")
)
