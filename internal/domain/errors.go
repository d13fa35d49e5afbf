package domain

import "errors"

var (
	// ErrNotFound covers missing, non-owned and already-expired records.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks rejected input; the wrapped message names the field.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when the grouping upsert still conflicts after
	// its internal retry.
	ErrConflict = errors.New("concurrent update conflict")
)
