package gaps

import "errors"

// ErrUnknownStatistic is returned for unsupported statistic names.
var ErrUnknownStatistic = errors.New("unknown gap statistic")
