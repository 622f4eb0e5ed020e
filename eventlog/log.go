// Package eventlog is the append-only history of distributions and the
// outbox through which external indexers observe the engine.
package eventlog

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/store"
)

var (
	bucketRevenue = []byte("eventlog_revenue")
	bucketHistory = []byte("eventlog_history")
	bucketOutbox  = []byte("eventlog_outbox")
)

var errStopIteration = errors.New("eventlog: stop iteration")

func u64Key(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

// AppendRevenue assigns ev the next ID, stores it and indexes it under its
// agent. IDs start at 0 and are never reused.
func AppendRevenue(tx store.Tx, ev *RevenueEvent) (uint64, error) {
	seq, err := tx.NextSequence(bucketRevenue)
	if err != nil {
		return 0, err
	}
	ev.ID = seq - 1

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ev); err != nil {
		return 0, fmt.Errorf("eventlog: encode revenue event: %w", err)
	}
	if err := tx.Put(bucketRevenue, u64Key(ev.ID), buf.Bytes()); err != nil {
		return 0, err
	}

	hk := make([]byte, 0, account.AddressSize+8)
	hk = append(hk, ev.Agent[:]...)
	hk = append(hk, u64Key(ev.ID)...)
	if err := tx.Put(bucketHistory, hk, u64Key(ev.ID)); err != nil {
		return 0, err
	}
	return ev.ID, nil
}

// Revenue returns the revenue event with the given ID.
func Revenue(tx store.Tx, id uint64) (*RevenueEvent, error) {
	data := tx.Get(bucketRevenue, u64Key(id))
	if data == nil {
		return nil, fmt.Errorf("%w: id %d", ErrEventNotFound, id)
	}
	ev := &RevenueEvent{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEventData, err)
	}
	return ev, nil
}

// History returns the IDs of agent's revenue events in append order.
func History(tx store.Tx, agent account.Address) ([]uint64, error) {
	var ids []uint64
	err := tx.ForEach(bucketHistory, agent[:], func(_, v []byte) error {
		if len(v) != 8 {
			return fmt.Errorf("%w: history entry", ErrInvalidEventData)
		}
		ids = append(ids, binary.BigEndian.Uint64(v))
		return nil
	})
	return ids, err
}

// Count returns the number of revenue events ever appended.
func Count(tx store.Tx) uint64 {
	return tx.Sequence(bucketRevenue)
}

// Emit writes an event envelope to the outbox. The returned Event should be
// handed to a Publisher only after the transaction commits.
func Emit(tx store.Tx, callID string, at time.Time, kind Kind, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: encode %s: %w", kind, err)
	}
	seq, err := tx.NextSequence(bucketOutbox)
	if err != nil {
		return Event{}, err
	}
	ev := Event{Seq: seq, Kind: kind, CallID: callID, Time: at.UTC(), Data: data}
	raw, err := json.Marshal(ev)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: encode envelope: %w", err)
	}
	if err := tx.Put(bucketOutbox, u64Key(seq), raw); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Since returns up to limit outbox events with Seq > after, oldest first.
// A limit of zero or less means no limit.
func Since(tx store.Tx, after uint64, limit int) ([]Event, error) {
	var out []Event
	err := tx.ForEach(bucketOutbox, nil, func(k, v []byte) error {
		if binary.BigEndian.Uint64(k) <= after {
			return nil
		}
		var ev Event
		if err := json.Unmarshal(v, &ev); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEventData, err)
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			return errStopIteration
		}
		return nil
	})
	if errors.Is(err, errStopIteration) {
		err = nil
	}
	return out, err
}

// LastSeq returns the highest outbox sequence number.
func LastSeq(tx store.Tx) uint64 {
	return tx.Sequence(bucketOutbox)
}
