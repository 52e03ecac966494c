package aggregate

import "errors"

var (
	// ErrMissingParameter means a scope was requested without one of the
	// parameters it needs.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrInvalidScope means the scope tag is not recognized.
	ErrInvalidScope = errors.New("invalid scope")
	// ErrStoreUnavailable wraps any failure returned by the record store.
	ErrStoreUnavailable = errors.New("record store unavailable")
)
