package lineage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/store"
)

const recordSize = 76 // id(8) + agent(20) + parent(20) + creator(20) + bundle_id(8)

// The spawn forest is an arena in two buckets: bucketRecords maps a
// deployment ID to its Record and bucketAgents maps an agent to its
// deployment ID. A parent pointer is written once, at creation, and must
// point to an existing record, so the forest can never contain a cycle.
var (
	bucketRecords = []byte("lineage_records")
	bucketAgents  = []byte("lineage_agents")
)

// SerializeRecord encodes a Record to its fixed-size binary form.
func SerializeRecord(r Record) []byte {
	buf := make([]byte, recordSize)
	binary.BigEndian.PutUint64(buf[0:8], r.ID)
	copy(buf[8:28], r.Agent[:])
	copy(buf[28:48], r.Parent[:])
	copy(buf[48:68], r.Creator[:])
	binary.BigEndian.PutUint64(buf[68:76], r.BundleID)
	return buf
}

// DeserializeRecord decodes a Record.
func DeserializeRecord(data []byte) (Record, error) {
	var r Record
	if len(data) != recordSize {
		return r, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidRecord, recordSize, len(data))
	}
	r.ID = binary.BigEndian.Uint64(data[0:8])
	copy(r.Agent[:], data[8:28])
	copy(r.Parent[:], data[28:48])
	copy(r.Creator[:], data[48:68])
	r.BundleID = binary.BigEndian.Uint64(data[68:76])
	return r, nil
}

func idKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

// AddTx records a new agent inside an existing write transaction.
func AddTx(tx store.Tx, agent, parent, creator account.Address, bundleID uint64) (uint64, error) {
	if err := checkNew(agent, parent); err != nil {
		return 0, err
	}
	if tx.Get(bucketAgents, agent[:]) != nil {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyRecorded, agent)
	}
	if !parent.IsZero() && tx.Get(bucketAgents, parent[:]) == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownParent, parent)
	}
	id, err := tx.NextSequence(bucketRecords)
	if err != nil {
		return 0, err
	}
	rec := Record{ID: id, Agent: agent, Parent: parent, Creator: creator, BundleID: bundleID}
	if err := tx.Put(bucketRecords, idKey(id), SerializeRecord(rec)); err != nil {
		return 0, err
	}
	if err := tx.Put(bucketAgents, agent[:], idKey(id)); err != nil {
		return 0, err
	}
	return id, nil
}

// LookupTx returns the record for agent as seen by tx.
func LookupTx(tx store.Tx, agent account.Address) (Record, error) {
	idb := tx.Get(bucketAgents, agent[:])
	if idb == nil {
		return Record{}, fmt.Errorf("%w: agent %s", ErrNotFound, agent)
	}
	data := tx.Get(bucketRecords, idb)
	if data == nil {
		return Record{}, fmt.Errorf("%w: dangling agent index for %s", ErrInvalidRecord, agent)
	}
	return DeserializeRecord(data)
}

// TxSource returns a ParentSource that reads through tx. It lets a caller
// already inside a store transaction resolve a receipt chain without
// opening a second one.
func TxSource(tx store.Tx) ParentSource {
	return ParentFunc(func(_ context.Context, agent account.Address) (account.Address, bool, error) {
		return parentTx(tx, agent)
	})
}

// GetTx returns the record for a deployment ID as seen by tx.
func GetTx(tx store.Tx, id uint64) (Record, error) {
	data := tx.Get(bucketRecords, idKey(id))
	if data == nil {
		return Record{}, fmt.Errorf("%w: deployment %d", ErrNotFound, id)
	}
	return DeserializeRecord(data)
}

func parentTx(tx store.Tx, agent account.Address) (account.Address, bool, error) {
	rec, err := LookupTx(tx, agent)
	if err != nil {
		if isNotFound(err) {
			return account.ZeroAddress, false, nil
		}
		return account.ZeroAddress, false, err
	}
	return rec.Parent, rec.HasParent(), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
