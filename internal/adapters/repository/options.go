package repository

import "time"

type options struct {
	busyTimeout time.Duration
	newID       func() string
}

func defaultOptions() options {
	return options{
		busyTimeout: 5 * time.Second,
		newID:       newID,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithIDGenerator sets the generator for coverage gap IDs.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}
