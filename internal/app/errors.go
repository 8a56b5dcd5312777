package service

import "errors"

// ErrInvalidEvent reports an event the log refuses to store.
var ErrInvalidEvent = errors.New("invalid event")
