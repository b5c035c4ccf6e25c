package api

import "errors"

var (
	// ErrInvalidRequestBody is returned when the request body cannot be decoded
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrURLRequired is returned when a scan request carries no URL
	ErrURLRequired = errors.New("url required")
	// ErrMultipleJSONObjects is returned when the request body contains more than one JSON object
	ErrMultipleJSONObjects = errors.New("request body must contain a single JSON object")
	// ErrReputationNotConfigured is returned when reputation endpoints are called without a manager
	ErrReputationNotConfigured = errors.New("reputation management not configured")
	// ErrInvalidLimit is returned when a limit query parameter is not a positive integer
	ErrInvalidLimit = errors.New("limit must be a positive integer")
	// ErrRateLimited is returned when a client exceeds its request rate
	ErrRateLimited = errors.New("rate limit exceeded")
)
