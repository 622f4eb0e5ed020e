package revshare

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/eventlog"
	"github.com/bitfsorg/libreceipt-go/ledger"
	"github.com/bitfsorg/libreceipt-go/lineage"
)

// FeeRequest describes one deployment fee reported by the factory.
type FeeRequest struct {
	DeploymentID uint64
	BundleID     uint64
	Fee          uint64
	Currency     account.Currency
	Payment      string // txid carrying a native fee into custody
}

// DistributeDeploymentFee splits a deployment fee across the bundle's
// contributors and the treasury, credit and curator pools, and records the
// deployment's payout exactly once. Only the agent factory may call it.
// A native fee must arrive in req.Payment, paying exactly the fee; a token
// fee is pulled from the factory.
func (e *Engine) DistributeDeploymentFee(ctx context.Context, caller account.Address, req FeeRequest) (*DeploymentPayout, error) {
	const op = "distribute_deployment_fee"
	var (
		rec     *DeploymentPayout
		payment string
	)
	body := func(c *call, collect func() error) error {
		if err := c.factory(caller); err != nil {
			return err
		}
		if c.tx.Get(bucketPayouts, payoutKey(req.DeploymentID)) != nil {
			return fmt.Errorf("%w: deployment %d", ErrPayoutRecorded, req.DeploymentID)
		}
		bundle, err := e.activeBundle(c, req.BundleID, req.Fee)
		if err != nil {
			return err
		}
		if err := collect(); err != nil {
			return err
		}
		rec, err = e.feeTx(c, req.DeploymentID, bundle, req.Fee, req.Currency, payment)
		return err
	}

	var err error
	switch req.Currency {
	case account.Native:
		if payment, err = e.feePayment(ctx, req.Payment, req.Fee); err != nil {
			e.metrics.Failed(op)
			return nil, err
		}
		err = e.update(ctx, op, func(c *call) error {
			if err := c.loadLive(); err != nil {
				return err
			}
			return body(c, func() error { return consumePayment(c, payment) })
		})
	case account.Token:
		err = e.withPull(ctx, op, caller, req.Fee, body)
	default:
		err = fmt.Errorf("revshare: %w", account.ErrInvalidCurrency)
	}
	if err != nil {
		return nil, err
	}
	e.metrics.DeploymentFee(req.Currency, req.Fee)
	return rec, nil
}

// feePayment verifies that a native fee arrived. A zero fee needs no
// payment and is rejected later by the bundle checks.
func (e *Engine) feePayment(ctx context.Context, payment string, fee uint64) (string, error) {
	if fee == 0 {
		return "", nil
	}
	txid, got, err := e.received(ctx, payment)
	if err != nil {
		return "", err
	}
	if got != fee {
		return "", fmt.Errorf("%w: %s paid %d, fee is %d", ErrPaymentMismatch, txid, got, fee)
	}
	return txid, nil
}

// DeployRequest describes one agent spawn reported by the factory.
type DeployRequest struct {
	Agent    account.Address
	Parent   account.Address // zero for a root agent
	Creator  account.Address
	BundleID uint64
	Fee      uint64
	Currency account.Currency
	Payment  string // txid carrying a native fee
}

// Deploy records a spawn in the lineage forest and, when the request
// carries a fee, distributes it, all in one transaction. It returns the
// deployment ID and the payout record (nil when Fee is zero).
func (e *Engine) Deploy(ctx context.Context, caller account.Address, req DeployRequest) (uint64, *DeploymentPayout, error) {
	const op = "deploy"
	var (
		id      uint64
		rec     *DeploymentPayout
		payment string
	)
	body := func(c *call, collect func() error) error {
		if err := c.factory(caller); err != nil {
			return err
		}
		var bundle *Bundle
		if req.Fee > 0 {
			var err error
			if bundle, err = e.activeBundle(c, req.BundleID, req.Fee); err != nil {
				return err
			}
		}
		var err error
		id, err = lineage.AddTx(c.tx, req.Agent, req.Parent, req.Creator, req.BundleID)
		if err != nil {
			return err
		}
		if req.Fee == 0 {
			return nil
		}
		if err := collect(); err != nil {
			return err
		}
		rec, err = e.feeTx(c, id, bundle, req.Fee, req.Currency, payment)
		return err
	}

	var err error
	if req.Fee > 0 && req.Currency == account.Token {
		err = e.withPull(ctx, op, caller, req.Fee, body)
	} else {
		if !req.Currency.Valid() {
			return 0, nil, fmt.Errorf("revshare: %w", account.ErrInvalidCurrency)
		}
		if payment, err = e.feePayment(ctx, req.Payment, req.Fee); err != nil {
			e.metrics.Failed(op)
			return 0, nil, err
		}
		err = e.update(ctx, op, func(c *call) error {
			if err := c.loadLive(); err != nil {
				return err
			}
			return body(c, func() error { return consumePayment(c, payment) })
		})
	}
	if err != nil {
		return 0, nil, err
	}
	if rec != nil {
		e.metrics.DeploymentFee(req.Currency, req.Fee)
	}
	return id, rec, nil
}

// factory checks caller is the configured agent factory.
func (c *call) factory(caller account.Address) error {
	if caller.IsZero() || caller != c.params.AgentFactory {
		return fmt.Errorf("%w: %s is not the agent factory", ErrUnauthorized, caller)
	}
	return nil
}

// activeBundle fetches and validates a bundle for a fee split.
func (e *Engine) activeBundle(c *call, bundleID, fee uint64) (*Bundle, error) {
	if fee == 0 {
		return nil, ErrZeroAmount
	}
	if e.bundles == nil {
		return nil, fmt.Errorf("%w: no bundle source", ErrBundleNotActive)
	}
	b, err := e.bundles.Bundle(c.ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("revshare: bundle lookup: %w", err)
	}
	if b == nil || !b.Active {
		return nil, fmt.Errorf("%w: bundle %d", ErrBundleNotActive, bundleID)
	}
	if err := ValidateContributors(b.Contributors); err != nil {
		return nil, err
	}
	bundle := *b
	bundle.ID = bundleID
	return &bundle, nil
}

// curator returns the curator pool's recipient under the current policy.
func (p Params) curator(b *Bundle) account.Address {
	if p.CuratorPolicy == CuratorToCreator && !b.Creator.IsZero() {
		return b.Creator
	}
	return p.Treasury
}

// feeTx splits fee inside c's transaction.
func (e *Engine) feeTx(c *call, deploymentID uint64, b *Bundle, fee uint64, cur account.Currency, payment string) (*DeploymentPayout, error) {
	p := c.params
	pools := SplitFee(fee, p.FeeShares)
	shares := SplitContributors(pools.Contributor, b.Contributors)

	for _, d := range shares {
		if err := ledger.Credit(c.tx, d.Address, cur, d.Amount); err != nil {
			return nil, err
		}
	}
	rec := &DeploymentPayout{
		DeploymentID:      deploymentID,
		BundleID:          b.ID,
		Currency:          cur,
		ContributorPayout: pools.Contributor,
		TreasuryPayout:    pools.Treasury,
		PoolPayout:        pools.Credit,
		CuratorPayout:     pools.Curator,
		Curator:           p.curator(b),
	}
	for _, credit := range []Distribution{
		{Address: p.Treasury, Amount: pools.Treasury},
		{Address: p.creditPool(), Amount: pools.Credit},
		{Address: rec.Curator, Amount: pools.Curator},
	} {
		if err := ledger.Credit(c.tx, credit.Address, cur, credit.Amount); err != nil {
			return nil, err
		}
	}
	if err := ValidateConservation(fee, rec.ContributorPayout, rec.TreasuryPayout, rec.PoolPayout, rec.CuratorPayout); err != nil {
		return nil, err
	}
	if err := recordPayout(c.tx, rec); err != nil {
		return nil, err
	}

	if err := c.emit(eventlog.KindFeeDistributed, eventlog.FeeDistributed{
		DeploymentID:    deploymentID,
		BundleID:        b.ID,
		Currency:        cur.String(),
		Fee:             fee,
		ContributorPool: pools.Contributor,
		TreasuryPool:    pools.Treasury,
		CreditPool:      pools.Credit,
		CuratorPool:     pools.Curator,
		Payment:         payment,
	}); err != nil {
		return nil, err
	}
	for _, d := range shares {
		if err := c.emit(eventlog.KindContributorPaid, eventlog.ContributorPaid{
			DeploymentID: deploymentID,
			BundleID:     b.ID,
			Contributor:  d.Address,
			Currency:     cur.String(),
			Amount:       d.Amount,
		}); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("deployment fee distributed",
		zap.Uint64("deployment_id", deploymentID),
		zap.Uint64("bundle_id", b.ID),
		zap.String("currency", cur.String()),
		zap.Uint64("fee", fee),
		zap.Int("contributors", len(shares)))
	return rec, nil
}
