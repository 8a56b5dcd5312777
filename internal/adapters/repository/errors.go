package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("event already exists")
	ErrMissingID      = errors.New("event id is required")
	ErrCoverageClosed = errors.New("coverage gap already ended")
	ErrInvalidRange   = errors.New("coverage gap must end after it starts")
	ErrClosed         = errors.New("store is closed")
)
