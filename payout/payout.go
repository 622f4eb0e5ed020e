// Package payout moves funds out of (and, for the payment token, into) the
// engine's custody. The engine never pushes funds during distribution; it
// only calls a Transferer when a recipient claims.
package payout

import (
	"context"

	"github.com/bitfsorg/libreceipt-go/account"
)

// Transferer pays amount units out of custody to a recipient.
type Transferer interface {
	Transfer(ctx context.Context, to account.Address, amount uint64) error
}

// TokenTransferer is a Transferer for the fungible payment token, which can
// additionally pull approved funds from a payer into custody.
type TokenTransferer interface {
	Transferer
	TransferFrom(ctx context.Context, from, to account.Address, amount uint64) error
}

// TransfererFunc adapts a function to the Transferer interface.
type TransfererFunc func(ctx context.Context, to account.Address, amount uint64) error

// Transfer calls f.
func (f TransfererFunc) Transfer(ctx context.Context, to account.Address, amount uint64) error {
	return f(ctx, to, amount)
}
