package shared

import "errors"

// Error categories shared across domain packages. Domain packages wrap these
// with specific messages so callers can branch on category with errors.Is.
var (
	// ErrNotFound indicates a missing resource (no open session, unknown customer).
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates rejected input; nothing was persisted.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a state conflict (opening balance already set,
	// duplicate open session, duplicate mobile).
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized indicates a failed credential check.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRemote indicates the ERP collaborator failed; local state is untouched.
	ErrRemote = errors.New("remote error")
)
