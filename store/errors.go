package store

import "errors"

var (
	// ErrTxNotWritable indicates a mutation was attempted inside View.
	ErrTxNotWritable = errors.New("store: transaction is read-only")

	// ErrEmptyKey indicates a nil or empty bucket name or key.
	ErrEmptyKey = errors.New("store: empty bucket or key")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store: closed")
)
