package checks

import "errors"

var (
	// ErrUnknownCheck is returned when configuration names a check that does not exist
	ErrUnknownCheck = errors.New("unknown check")
	// ErrNegativeWeight is returned when a configured weight is below zero
	ErrNegativeWeight = errors.New("check weight must not be negative")
)
