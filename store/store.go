// Package store provides the transactional key/value layer underneath the
// revenue engine. Every engine call runs inside exactly one Update, so a call
// either applies all of its ledger, log and configuration writes or none.
package store

// Store is a transactional bucketed key/value store.
type Store interface {
	// View runs fn in a read-only transaction.
	View(fn func(Tx) error) error

	// Update runs fn in a read-write transaction. Writers are serialised.
	// If fn returns an error, none of its writes become visible.
	Update(fn func(Tx) error) error

	// Close releases the store.
	Close() error
}

// Tx is the view of the store inside a single transaction.
//
// Byte slices returned by Get and passed to ForEach are only valid for the
// lifetime of the transaction; callers must copy or decode them before it ends.
type Tx interface {
	// Get returns the value for key in bucket, or nil if absent.
	Get(bucket, key []byte) []byte

	// Put sets key in bucket, creating the bucket if needed.
	Put(bucket, key, value []byte) error

	// Delete removes key from bucket. Deleting a missing key is not an error.
	Delete(bucket, key []byte) error

	// NextSequence returns the next value of the bucket's monotonic counter,
	// starting at 1.
	NextSequence(bucket []byte) (uint64, error)

	// Sequence returns the bucket's current counter value without advancing it.
	Sequence(bucket []byte) uint64

	// ForEach visits every key in bucket starting with prefix, in ascending
	// byte order. Returning an error from fn stops the iteration.
	ForEach(bucket, prefix []byte, fn func(k, v []byte) error) error

	// Writable reports whether the transaction accepts mutations.
	Writable() bool
}
