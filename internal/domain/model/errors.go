package model

import "errors"

// Sentinel kinds for model parsing errors.
var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrUnknownLocation  = errors.New("unknown location")
	ErrUnknownUrgency   = errors.New("unknown urgency")
)
