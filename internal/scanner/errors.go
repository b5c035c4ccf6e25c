package scanner

import "errors"

var (
	// ErrInvalidTarget is returned when the submitted URL cannot be parsed or normalized
	ErrInvalidTarget = errors.New("invalid target")
	// ErrNoSnapshotSource is returned when a scanner is constructed without reputation data
	ErrNoSnapshotSource = errors.New("reputation snapshot source is required")
	// ErrInvalidBudget is returned when the overall scan budget is not positive
	ErrInvalidBudget = errors.New("scan budget must be positive")
)

// truncatedMessage is appended to the report errors when the budget expires
const truncatedMessage = "scan truncated: timeout"
