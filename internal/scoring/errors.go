package scoring

import "errors"

// ErrInvalidThresholds is returned when the low threshold is not below the high one
var ErrInvalidThresholds = errors.New("invalid verdict thresholds")
