package types

import "errors"

// ErrInvalidView indicates a client payload that cannot become a domain value.
var ErrInvalidView = errors.New("invalid payload")
