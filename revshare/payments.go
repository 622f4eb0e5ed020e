package revshare

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bitfsorg/libreceipt-go/store"
)

var bucketPayments = []byte("revshare_payments")

// received verifies an incoming native payment and returns its normalized
// txid and the value it paid into custody.
func (e *Engine) received(ctx context.Context, payment string) (string, uint64, error) {
	txid := strings.ToLower(strings.TrimSpace(payment))
	if b, err := hex.DecodeString(txid); err != nil || len(b) != 32 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPayment, payment)
	}
	if e.payments == nil {
		return "", 0, ErrPaymentsNotConfigured
	}
	amount, err := e.payments.Received(ctx, txid)
	if err != nil {
		return "", 0, fmt.Errorf("revshare: payment %s: %w", txid, err)
	}
	return txid, amount, nil
}

// consumePayment marks txid as distributed by c.
func consumePayment(c *call, txid string) error {
	if c.tx.Get(bucketPayments, []byte(txid)) != nil {
		return fmt.Errorf("%w: %s", ErrPaymentConsumed, txid)
	}
	return c.tx.Put(bucketPayments, []byte(txid), []byte(c.id))
}

// PaymentConsumer returns the ID of the call that distributed txid, or ""
// when the payment has not been used.
func (e *Engine) PaymentConsumer(txid string) (string, error) {
	var id string
	err := e.view(func(tx store.Tx) error {
		if v := tx.Get(bucketPayments, []byte(strings.ToLower(txid))); v != nil {
			id = string(v)
		}
		return nil
	})
	return id, err
}
