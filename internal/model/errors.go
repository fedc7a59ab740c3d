package model

import "errors"

// Error kinds shared by the store, the live hub and the UI. Callers wrap
// them with context and test with errors.Is.
var (
	// ErrValidation marks input rejected before it reached storage,
	// e.g. a title that is blank after trimming.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a mutation whose target no longer exists.
	ErrNotFound = errors.New("todo not found")

	// ErrTransport marks a store that could not be reached.
	ErrTransport = errors.New("store unreachable")

	// ErrPrecondition marks a state transition that is not allowed in the
	// current state, such as editing a completed todo.
	ErrPrecondition = errors.New("precondition failed")
)
