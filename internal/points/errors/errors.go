package errors

import "errors"

var (
	ErrNotFound  = errors.New("point transaction not found")
	ErrInvalidID = errors.New("invalid point transaction ID format")
	// ErrSessionNotPending means no pending transaction matches the
	// external session id: either the session is unknown or its charge
	// already completed. Both make confirmation a no-op.
	ErrSessionNotPending = errors.New("no pending transaction for session")
)
