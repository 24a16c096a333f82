package sim

import "errors"

var (
	// ErrNotFound reports a name that is absent from the engine metadata.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument reports a malformed request caught before any
	// engine call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidBody reports an unknown or removed body handle.
	ErrInvalidBody = errors.New("invalid body")

	// ErrInvalidLink reports a link index outside the body.
	ErrInvalidLink = errors.New("invalid link")

	// ErrNotConnected reports a call on a closed engine connection.
	ErrNotConnected = errors.New("engine not connected")
)
