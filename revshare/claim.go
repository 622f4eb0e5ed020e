package revshare

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/ledger"
	"github.com/bitfsorg/libreceipt-go/payout"
)

// Claim pays caller's whole token balance and returns the amount.
func (e *Engine) Claim(ctx context.Context, caller account.Address) (uint64, error) {
	var t payout.Transferer
	if e.token != nil {
		t = e.token
	}
	return e.claim(ctx, caller, account.Token, t)
}

// ClaimNative pays caller's whole native balance and returns the amount.
func (e *Engine) ClaimNative(ctx context.Context, caller account.Address) (uint64, error) {
	return e.claim(ctx, caller, account.Native, e.native)
}

func (e *Engine) claim(ctx context.Context, caller account.Address, cur account.Currency, t payout.Transferer) (uint64, error) {
	op := "claim_" + cur.String()
	amount, err := e.claimOnce(ctx, op, caller, cur, t)
	if err != nil {
		e.metrics.Failed(op)
		return 0, err
	}
	e.metrics.Claimed(cur, amount)
	e.logger.Info("earnings claimed",
		zap.String("recipient", caller.String()),
		zap.String("currency", cur.String()),
		zap.Uint64("amount", amount))
	return amount, nil
}

// claimOnce withdraws the balance and records a pending claim in one
// transaction, pays outside any transaction, then settles the pending claim.
// The balance is gone before the transfer starts, so neither a failed
// commit nor a retry can pay it twice.
func (e *Engine) claimOnce(ctx context.Context, op string, caller account.Address, cur account.Currency, t payout.Transferer) (uint64, error) {
	inner, release, err := e.enterExternal(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	c := e.newCall(inner)
	var pc *PendingClaim
	err = e.commit(c, op, func(c *call) error {
		if err := c.loadLive(); err != nil {
			return err
		}
		if caller.IsZero() {
			return fmt.Errorf("%w: caller", ErrZeroAddress)
		}
		if t == nil {
			if cur == account.Token {
				return ErrTokenNotConfigured
			}
			return ErrNativeNotConfigured
		}
		if cur == account.Token && !c.params.TokenEnabled() {
			return ErrTokenNotConfigured
		}
		amount, err := ledger.Withdraw(c.tx, caller, cur)
		if err != nil {
			return err
		}
		pc = &PendingClaim{ID: c.id, Recipient: caller, Currency: cur, Amount: amount, At: c.at}
		return putPending(c.tx, pc)
	})
	if err != nil {
		return 0, err
	}

	if terr := t.Transfer(inner, caller, pc.Amount); terr != nil {
		cause := transferErr("claim", terr)
		if errors.Is(terr, payout.ErrOutcomeUnknown) {
			e.logger.Error("claim payout outcome unknown, left pending",
				zap.String("claim_id", pc.ID),
				zap.String("recipient", caller.String()),
				zap.Uint64("amount", pc.Amount),
				zap.Error(terr))
			return 0, fmt.Errorf("%w: %s: %w", ErrClaimPending, pc.ID, cause)
		}
		if err := e.commit(c, op, func(c *call) error {
			_, err := settleTx(c, pc.ID, false, false)
			return err
		}); err != nil {
			e.logger.Error("failed claim could not be restored, left pending",
				zap.String("claim_id", pc.ID),
				zap.String("recipient", caller.String()),
				zap.Uint64("amount", pc.Amount),
				zap.NamedError("cause", terr),
				zap.Error(err))
			return 0, errors.Join(cause, fmt.Errorf("%w: %s: restore: %w", ErrClaimPending, pc.ID, err))
		}
		return 0, cause
	}

	if err := e.commit(c, op, func(c *call) error {
		_, err := settleTx(c, pc.ID, true, true)
		return err
	}); err != nil {
		// The payout went out; only the pending record is stale.
		e.logger.Error("claim paid but pending record not settled",
			zap.String("claim_id", pc.ID),
			zap.String("recipient", caller.String()),
			zap.Uint64("amount", pc.Amount),
			zap.Error(err))
	}
	return pc.Amount, nil
}
