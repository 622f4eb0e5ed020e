package store

import (
	"bytes"
	"sort"
	"sync"
)

// MemStore is an in-memory Store. Write transactions are staged in an
// overlay and merged into the committed state only when fn succeeds.
type MemStore struct {
	wmu sync.Mutex // serialises writers

	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	seqs    map[string]uint64
	closed  bool
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		buckets: make(map[string]map[string][]byte),
		seqs:    make(map[string]uint64),
	}
}

// Close marks the store closed; later transactions fail with ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// View runs fn against the committed state.
func (s *MemStore) View(fn func(Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&memTx{s: s})
}

// Update runs fn against an overlay and commits it if fn returns nil.
func (s *MemStore) Update(fn func(Tx) error) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	tx := &memTx{
		s:        s,
		writable: true,
		writes:   make(map[string]map[string][]byte),
		deletes:  make(map[string]map[string]bool),
		seqs:     make(map[string]uint64),
	}
	// Committed state only changes under wmu, so reads through the overlay
	// need no lock beyond the one taken by each accessor.
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for b, dels := range tx.deletes {
		for k := range dels {
			delete(s.buckets[b], k)
		}
	}
	for b, kv := range tx.writes {
		bucket := s.buckets[b]
		if bucket == nil {
			bucket = make(map[string][]byte)
			s.buckets[b] = bucket
		}
		for k, v := range kv {
			bucket[k] = v
		}
	}
	for b, n := range tx.seqs {
		s.seqs[b] = n
	}
	return nil
}

type memTx struct {
	s        *MemStore
	writable bool
	writes   map[string]map[string][]byte
	deletes  map[string]map[string]bool
	seqs     map[string]uint64
}

func (t *memTx) Writable() bool { return t.writable }

func (t *memTx) committed(bucket, key string) ([]byte, bool) {
	if t.writable {
		t.s.mu.RLock()
		defer t.s.mu.RUnlock()
	}
	v, ok := t.s.buckets[bucket][key]
	return v, ok
}

func (t *memTx) Get(bucket, key []byte) []byte {
	b, k := string(bucket), string(key)
	if t.writable {
		if v, ok := t.writes[b][k]; ok {
			return v
		}
		if t.deletes[b][k] {
			return nil
		}
	}
	v, _ := t.committed(b, k)
	return v
}

func (t *memTx) Put(bucket, key, value []byte) error {
	if !t.writable {
		return ErrTxNotWritable
	}
	if len(bucket) == 0 || len(key) == 0 {
		return ErrEmptyKey
	}
	b, k := string(bucket), string(key)
	if t.writes[b] == nil {
		t.writes[b] = make(map[string][]byte)
	}
	t.writes[b][k] = bytes.Clone(value)
	delete(t.deletes[b], k)
	return nil
}

func (t *memTx) Delete(bucket, key []byte) error {
	if !t.writable {
		return ErrTxNotWritable
	}
	b, k := string(bucket), string(key)
	delete(t.writes[b], k)
	if t.deletes[b] == nil {
		t.deletes[b] = make(map[string]bool)
	}
	t.deletes[b][k] = true
	return nil
}

func (t *memTx) Sequence(bucket []byte) uint64 {
	b := string(bucket)
	if t.writable {
		if n, ok := t.seqs[b]; ok {
			return n
		}
		t.s.mu.RLock()
		defer t.s.mu.RUnlock()
	}
	return t.s.seqs[b]
}

func (t *memTx) NextSequence(bucket []byte) (uint64, error) {
	if !t.writable {
		return 0, ErrTxNotWritable
	}
	if len(bucket) == 0 {
		return 0, ErrEmptyKey
	}
	n := t.Sequence(bucket) + 1
	t.seqs[string(bucket)] = n
	return n, nil
}

func (t *memTx) ForEach(bucket, prefix []byte, fn func(k, v []byte) error) error {
	b := string(bucket)
	merged := make(map[string][]byte)

	if t.writable {
		t.s.mu.RLock()
	}
	for k, v := range t.s.buckets[b] {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = v
		}
	}
	if t.writable {
		t.s.mu.RUnlock()
		for k := range t.deletes[b] {
			delete(merged, k)
		}
		for k, v := range t.writes[b] {
			if bytes.HasPrefix([]byte(k), prefix) {
				merged[k] = v
			}
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}
