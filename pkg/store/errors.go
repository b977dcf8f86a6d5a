package store

import "errors"

// Error taxonomy shared by every backend. Callers branch with errors.Is;
// backends wrap these with context about the failing reference.
var (
	// ErrNotFound means a referenced parent entity is absent: an edge
	// endpoint, a chunk's document, a missing summary row.
	ErrNotFound = errors.New("not found")

	// ErrConflict should never surface from correct merge logic; seeing it
	// indicates a bug in an upsert path.
	ErrConflict = errors.New("conflict")

	// ErrValidation means a required field is missing or out of range.
	ErrValidation = errors.New("invalid input")

	// ErrDependency means a collaborator (embedding provider, database) is
	// unavailable.
	ErrDependency = errors.New("dependency unavailable")
)
