package clients

import "errors"

var (
	// ErrNotFound is returned when a client id matches no row.
	ErrNotFound = errors.New("client not found")

	// ErrInvalidInput is returned for malformed inputs.
	ErrInvalidInput = errors.New("invalid input")
)
