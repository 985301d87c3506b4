package sink

import "errors"

var (
	// ErrClosed is returned by Append after Close.
	ErrClosed = errors.New("sink is closed")

	// ErrNilEntry is returned when Append receives a nil entry.
	ErrNilEntry = errors.New("entry cannot be nil")
)
