package configstore

import "errors"

var (
	// ErrNotFound is returned when no entry exists for the requested identity.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned when an identity field is empty or
	// malformed. Rejected before any I/O.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable is returned when the persistence layer cannot be
	// reached. Driver-level detail never crosses the store boundary; callers
	// match with errors.Is.
	ErrUnavailable = errors.New("config store unavailable")
)
