package errors

import "errors"

var (
	ErrNotFound     = errors.New("settlement not found")
	ErrInvalidID    = errors.New("invalid settlement ID format")
	ErrStateChanged = errors.New("settlement status compare-and-set matched nothing")
	// ErrDuplicate is raised by the unique (partner_id, period_start,
	// period_end) index when a period is aggregated twice.
	ErrDuplicate = errors.New("settlement already exists for period")
)
