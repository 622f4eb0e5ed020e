package revshare

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/eventlog"
	"github.com/bitfsorg/libreceipt-go/ledger"
	"github.com/bitfsorg/libreceipt-go/store"
)

var bucketPending = []byte("revshare_pending_claims")

const pendingSize = account.AddressSize + 1 + 8 + 8 // recipient + currency + amount + unix nanos

// PendingClaim is a withdrawal whose payout has been started but not
// settled. Its amount is already counted as claimed in the ledger.
type PendingClaim struct {
	ID        string           `json:"id"`
	Recipient account.Address  `json:"recipient"`
	Currency  account.Currency `json:"currency"`
	Amount    uint64           `json:"amount"`
	At        time.Time        `json:"at"`
}

func serializePending(pc *PendingClaim) []byte {
	buf := make([]byte, pendingSize)
	copy(buf[0:20], pc.Recipient[:])
	buf[20] = byte(pc.Currency)
	binary.BigEndian.PutUint64(buf[21:29], pc.Amount)
	binary.BigEndian.PutUint64(buf[29:37], uint64(pc.At.UnixNano()))
	return buf
}

func deserializePending(id string, data []byte) (*PendingClaim, error) {
	if len(data) != pendingSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPendingData, pendingSize, len(data))
	}
	pc := &PendingClaim{ID: id}
	copy(pc.Recipient[:], data[0:20])
	pc.Currency = account.Currency(data[20])
	if !pc.Currency.Valid() {
		return nil, fmt.Errorf("%w: currency %d", ErrInvalidPendingData, data[20])
	}
	pc.Amount = binary.BigEndian.Uint64(data[21:29])
	pc.At = time.Unix(0, int64(binary.BigEndian.Uint64(data[29:37]))).UTC()
	return pc, nil
}

func putPending(tx store.Tx, pc *PendingClaim) error {
	return tx.Put(bucketPending, []byte(pc.ID), serializePending(pc))
}

func loadPending(tx store.Tx, id string) (*PendingClaim, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrPendingClaimNotFound)
	}
	data := tx.Get(bucketPending, []byte(id))
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrPendingClaimNotFound, id)
	}
	return deserializePending(id, data)
}

// settleTx closes a pending claim. A paid claim is announced; an unpaid one
// goes back to the recipient's balance.
func settleTx(c *call, id string, paid, announce bool) (*PendingClaim, error) {
	pc, err := loadPending(c.tx, id)
	if err != nil {
		return nil, err
	}
	if err := c.tx.Delete(bucketPending, []byte(id)); err != nil {
		return nil, err
	}
	if paid {
		return pc, c.emit(eventlog.KindEarningsClaimed, eventlog.EarningsClaimed{
			ClaimID: pc.ID, Recipient: pc.Recipient, Currency: pc.Currency.String(), Amount: pc.Amount,
		})
	}
	if err := ledger.Restore(c.tx, pc.Recipient, pc.Currency, pc.Amount); err != nil {
		return nil, err
	}
	if !announce {
		return pc, nil
	}
	return pc, c.emit(eventlog.KindClaimReverted, eventlog.ClaimReverted{
		ClaimID: pc.ID, Recipient: pc.Recipient, Currency: pc.Currency.String(), Amount: pc.Amount,
	})
}

// PendingClaims lists claims whose payout outcome is not yet settled,
// ordered by ID.
func (e *Engine) PendingClaims() ([]PendingClaim, error) {
	var out []PendingClaim
	err := e.view(func(tx store.Tx) error {
		return tx.ForEach(bucketPending, nil, func(k, v []byte) error {
			pc, err := deserializePending(string(k), v)
			if err != nil {
				return err
			}
			out = append(out, *pc)
			return nil
		})
	})
	return out, err
}

// ResolvePendingClaim settles a pending claim once the admin has confirmed
// the payout's fate. paid=true records it as claimed; paid=false returns the
// amount to the recipient's balance. Resolution works while paused.
func (e *Engine) ResolvePendingClaim(ctx context.Context, caller account.Address, id string, paid bool) (*PendingClaim, error) {
	var pc *PendingClaim
	err := e.update(ctx, "resolve_pending_claim", func(c *call) error {
		if err := c.admin(caller); err != nil {
			return err
		}
		var err error
		pc, err = settleTx(c, id, paid, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("pending claim resolved",
		zap.String("claim_id", pc.ID),
		zap.String("recipient", pc.Recipient.String()),
		zap.String("currency", pc.Currency.String()),
		zap.Uint64("amount", pc.Amount),
		zap.Bool("paid", paid))
	if paid {
		e.metrics.Claimed(pc.Currency, pc.Amount)
	}
	return pc, nil
}
