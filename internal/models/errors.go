package models

import "errors"

// Error kinds surfaced by the core. Wrap them with fmt.Errorf("...: %w")
// and classify with errors.Is.
var (
	// ErrInvalidInput marks a request rejected before any side effect.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDependencyFailure marks an unreachable or failing similarity backend.
	ErrDependencyFailure = errors.New("dependency failure")
	// ErrStorageFailure marks feedback persistence that could not complete.
	ErrStorageFailure = errors.New("storage failure")
	// ErrNotFound marks a lookup of an unknown user or movie.
	ErrNotFound = errors.New("not found")
)
