package content

import "errors"

// ErrInvalidHTML is returned when a body cannot be parsed as HTML
var ErrInvalidHTML = errors.New("invalid html document")
