package seed

import "errors"

// ErrInvalidConfig reports generator settings that cannot produce a log.
var ErrInvalidConfig = errors.New("invalid seed config")
