package trace

import "errors"

var (
	// ErrClosed is returned by operations on a client after Close.
	ErrClosed = errors.New("trace client is closed")

	// ErrNotConnected is returned when the client has no live connection.
	ErrNotConnected = errors.New("trace client is not connected")
)
