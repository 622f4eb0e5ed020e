package eventlog

import "errors"

var (
	// ErrEventNotFound indicates no revenue event has the requested ID.
	ErrEventNotFound = errors.New("eventlog: event not found")

	// ErrInvalidEventData indicates a stored event could not be decoded.
	ErrInvalidEventData = errors.New("eventlog: invalid event data")

	// ErrDispatcherClosed indicates events were published after Close.
	ErrDispatcherClosed = errors.New("eventlog: dispatcher closed")
)
