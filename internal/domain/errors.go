package domain

import "errors"

var (
	// ErrEmptyTarget is returned when no URL was supplied
	ErrEmptyTarget = errors.New("target URL is empty")
	// ErrInvalidURLFormat is returned when the URL format is not valid
	ErrInvalidURLFormat = errors.New("invalid URL format")
	// ErrUnsupportedScheme is returned when the URL scheme is not http or https
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrInvalidDomainFormat is returned when the domain format is not valid
	ErrInvalidDomainFormat = errors.New("invalid domain format")
)
