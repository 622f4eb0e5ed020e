package revshare

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/eventlog"
	"github.com/bitfsorg/libreceipt-go/ledger"
	"github.com/bitfsorg/libreceipt-go/payout"
)

// DistributeRevenue splits the native revenue carried by the incoming
// transaction payment for agent. The amount is whatever the PaymentSource
// reports the transaction paid into custody, and each payment can be
// distributed once.
func (e *Engine) DistributeRevenue(ctx context.Context, agent account.Address, source, payment string) (*RevenueResult, error) {
	const op = "distribute_revenue"
	txid, amount, err := e.received(ctx, payment)
	if err != nil {
		e.metrics.Failed(op)
		return nil, err
	}
	var res *RevenueResult
	err = e.update(ctx, op, func(c *call) error {
		if err := c.loadLive(); err != nil {
			return err
		}
		if err := e.checkRevenue(c, agent, amount); err != nil {
			return err
		}
		if err := consumePayment(c, txid); err != nil {
			return err
		}
		var err error
		res, err = e.distributeTx(c, agent, source, amount, account.Native, txid)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Distributed(account.Native, amount)
	return res, nil
}

// DistributeRevenueToken pulls amount payment tokens from payer into
// custody and splits them for agent. The pull happens after every check and
// before any ledger effect; if the call fails after the pull, the tokens are
// returned to payer.
func (e *Engine) DistributeRevenueToken(ctx context.Context, payer, agent account.Address, source string, amount uint64) (*RevenueResult, error) {
	var res *RevenueResult
	err := e.withPull(ctx, "distribute_revenue_token", payer, amount, func(c *call, pull func() error) error {
		if err := e.checkRevenue(c, agent, amount); err != nil {
			return err
		}
		if err := pull(); err != nil {
			return err
		}
		var err error
		res, err = e.distributeTx(c, agent, source, amount, account.Token, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Distributed(account.Token, amount)
	return res, nil
}

// errPullReady aborts the checking pass of withPull once fn reaches its pull.
var errPullReady = errors.New("revshare: ready to pull")

// withPull runs a token-mode call around a pull of amount from payer into
// custody. fn runs twice: first in a transaction that is rolled back as soon
// as fn asks to pull, so every check runs before any funds move; then, after
// the pull, in the transaction that commits. If that commit fails the pulled
// funds are refunded. A fn that never pulls commits on the first pass.
func (e *Engine) withPull(ctx context.Context, op string, payer account.Address, amount uint64, fn func(c *call, pull func() error) error) error {
	err := e.pullOnce(ctx, op, payer, amount, fn)
	if err != nil {
		e.metrics.Failed(op)
	}
	return err
}

func (e *Engine) pullOnce(ctx context.Context, op string, payer account.Address, amount uint64, fn func(c *call, pull func() error) error) error {
	inner, release, err := e.enterExternal(ctx)
	if err != nil {
		return err
	}
	defer release()

	c := e.newCall(inner)
	body := func(pull func() error) func(c *call) error {
		return func(c *call) error {
			if err := c.loadLive(); err != nil {
				return err
			}
			if !c.params.TokenEnabled() || e.token == nil {
				return ErrTokenNotConfigured
			}
			if payer.IsZero() {
				return fmt.Errorf("%w: payer", ErrZeroAddress)
			}
			return fn(c, pull)
		}
	}

	err = e.commit(c, op, body(func() error {
		if amount == 0 {
			return ErrZeroAmount
		}
		return errPullReady
	}))
	if err == nil || !errors.Is(err, errPullReady) {
		return err
	}

	if err := e.token.TransferFrom(inner, payer, e.custody, amount); err != nil {
		if errors.Is(err, payout.ErrOutcomeUnknown) {
			e.logger.Error("token pull outcome unknown, custody may hold unaccounted funds",
				zap.String("payer", payer.String()),
				zap.Uint64("amount", amount),
				zap.String("call_id", c.id),
				zap.Error(err))
		}
		return transferErr("pull", err)
	}

	err = e.commit(c, op, body(func() error { return nil }))
	if err == nil {
		return nil
	}
	if rerr := e.token.Transfer(inner, payer, amount); rerr != nil {
		e.logger.Error("refund after failed call did not go through",
			zap.String("payer", payer.String()),
			zap.Uint64("amount", amount),
			zap.String("call_id", c.id),
			zap.NamedError("cause", err),
			zap.Error(rerr))
		return errors.Join(err, transferErr("refund", rerr))
	}
	return err
}

func (e *Engine) checkRevenue(c *call, agent account.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if agent.IsZero() {
		return fmt.Errorf("%w: agent", ErrZeroAddress)
	}
	if e.agents != nil {
		ok, err := e.agents.IsActiveAgent(c.ctx, agent)
		if err != nil {
			return fmt.Errorf("revshare: agent lookup: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrAgentNotActive, agent)
		}
	}
	return nil
}

// distributeTx applies the revenue waterfall inside c's transaction. The
// caller has already run checkRevenue.
func (e *Engine) distributeTx(c *call, agent account.Address, source string, amount uint64, cur account.Currency, payment string) (*RevenueResult, error) {
	p := c.params

	cfg, err := shareConfigTx(c.tx, agent, p.Defaults)
	if err != nil {
		return nil, err
	}
	split := SplitRevenue(amount, cfg)

	if err := ledger.Credit(c.tx, agent, cur, split.Owner); err != nil {
		return nil, err
	}

	res := &RevenueResult{Amount: amount, Owner: split.Owner, Treasury: split.Treasury}
	var (
		chainPaid uint64
		gens      []int
	)
	ancestors := e.resolver(c.tx).ReceiptChain(c.ctx, agent, p.MaxChainDepth)
	if len(ancestors) == 0 {
		res.Treasury += split.Chain
	} else {
		for g, d := range SplitChain(split.Chain, ancestors, p.DecayFactor) {
			if d.Amount == 0 {
				continue
			}
			if err := ledger.Credit(c.tx, d.Address, cur, d.Amount); err != nil {
				return nil, err
			}
			res.Ancestors = append(res.Ancestors, d)
			gens = append(gens, g)
			chainPaid += d.Amount
		}
	}
	if err := ledger.Credit(c.tx, p.Treasury, cur, res.Treasury); err != nil {
		return nil, err
	}
	if err := ValidateConservation(amount, res.Owner, chainPaid, res.Treasury); err != nil {
		return nil, err
	}

	ev := &eventlog.RevenueEvent{
		Agent:          agent,
		Source:         source,
		Amount:         amount,
		IsNative:       cur == account.Native,
		OwnerAmount:    res.Owner,
		ChainAmount:    chainPaid,
		TreasuryAmount: res.Treasury,
		Timestamp:      c.at,
	}
	if res.EventID, err = eventlog.AppendRevenue(c.tx, ev); err != nil {
		return nil, err
	}
	if err := addAgentTotal(c.tx, agent, cur, amount); err != nil {
		return nil, err
	}

	if err := c.emit(eventlog.KindRevenueDistributed, eventlog.RevenueDistributed{
		EventID:        res.EventID,
		Agent:          agent,
		Source:         source,
		Currency:       cur.String(),
		Amount:         amount,
		OwnerAmount:    res.Owner,
		ChainAmount:    chainPaid,
		TreasuryAmount: res.Treasury,
		Payment:        payment,
	}); err != nil {
		return nil, err
	}
	for i, d := range res.Ancestors {
		if err := c.emit(eventlog.KindContributorCredited, eventlog.ContributorCredited{
			EventID:    res.EventID,
			Agent:      agent,
			Ancestor:   d.Address,
			Generation: gens[i],
			Currency:   cur.String(),
			Amount:     d.Amount,
		}); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("revenue distributed",
		zap.String("agent", agent.String()),
		zap.String("source", source),
		zap.String("currency", cur.String()),
		zap.Uint64("amount", amount),
		zap.Uint64("event_id", res.EventID),
		zap.Int("ancestors", len(ancestors)))
	return res, nil
}
