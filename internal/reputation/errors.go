package reputation

import "errors"

var (
	// ErrStoreUnavailable is returned when one or more reputation lists could not be read
	ErrStoreUnavailable = errors.New("reputation store unavailable")
	// ErrNilStore is returned when a manager is constructed without a backing store
	ErrNilStore = errors.New("reputation store is required")
	// ErrUnknownList is returned when a list name is not recognized
	ErrUnknownList = errors.New("unknown reputation list")
	// ErrEmptyValue is returned when an entry has no value after normalization
	ErrEmptyValue = errors.New("reputation entry value cannot be empty")
	// ErrEntryNotFound is returned when removing an entry that does not exist
	ErrEntryNotFound = errors.New("reputation entry not found")
	// ErrUnknownBackend is returned when the configured store backend is not supported
	ErrUnknownBackend = errors.New("unknown reputation store backend")
	// ErrNoFeedsDefined is returned when hydration is requested without any configured feeds
	ErrNoFeedsDefined = errors.New("feed configuration has no feeds defined")
	// ErrNoUsableHydrationData is returned when hydration completed without producing usable indicators
	ErrNoUsableHydrationData = errors.New("hydration produced no usable indicator data")
	// ErrUnexpectedFeedStatus is returned when a feed download returns an unexpected HTTP status
	ErrUnexpectedFeedStatus = errors.New("unexpected feed response status")
)
