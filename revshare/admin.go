package revshare

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/eventlog"
)

// admin loads params and checks caller holds the admin role.
func (c *call) admin(caller account.Address) error {
	p, err := loadParams(c.tx)
	if err != nil {
		return err
	}
	if caller.IsZero() || caller != p.Admin {
		return fmt.Errorf("%w: %s is not admin", ErrUnauthorized, caller)
	}
	c.params = p
	return nil
}

// setParam applies mutate to the params under the admin check and emits
// ParamsChanged{field, value}.
func (e *Engine) setParam(ctx context.Context, caller account.Address, field string, mutate func(p *Params) (string, error)) error {
	return e.update(ctx, "set_"+field, func(c *call) error {
		if err := c.admin(caller); err != nil {
			return err
		}
		value, err := mutate(&c.params)
		if err != nil {
			return err
		}
		if err := saveParams(c.tx, c.params); err != nil {
			return err
		}
		e.logger.Info("engine parameter changed",
			zap.String("field", field), zap.String("value", value), zap.String("call_id", c.id))
		return c.emit(eventlog.KindParamsChanged, eventlog.ParamsChanged{Field: field, Value: value})
	})
}

func setAddress(dst *account.Address, a account.Address) (string, error) {
	if a.IsZero() {
		return "", ErrZeroAddress
	}
	*dst = a
	return a.String(), nil
}

// SetShareConfig sets agent's explicit split, overwriting any previous one.
func (e *Engine) SetShareConfig(ctx context.Context, caller, agent account.Address, owner, chain, treasury uint16, bundleID uint64) error {
	return e.update(ctx, "set_share_config", func(c *call) error {
		if err := c.admin(caller); err != nil {
			return err
		}
		if agent.IsZero() {
			return fmt.Errorf("%w: agent", ErrZeroAddress)
		}
		if err := ValidateShares(owner, chain, treasury); err != nil {
			return err
		}
		cfg := ShareConfig{OwnerBps: owner, ChainBps: chain, TreasuryBps: treasury, BundleID: bundleID}
		if err := putShareConfig(c.tx, agent, cfg); err != nil {
			return err
		}
		return c.emit(eventlog.KindShareConfigSet, eventlog.ShareConfigSet{
			Agent: agent, OwnerBps: owner, ChainBps: chain, TreasuryBps: treasury, BundleID: bundleID,
		})
	})
}

// SetDefaultShares sets the split used by agents without an explicit config.
func (e *Engine) SetDefaultShares(ctx context.Context, caller account.Address, owner, chain, treasury uint16) error {
	return e.update(ctx, "set_default_shares", func(c *call) error {
		if err := c.admin(caller); err != nil {
			return err
		}
		if err := ValidateShares(owner, chain, treasury); err != nil {
			return err
		}
		c.params.Defaults = ShareConfig{OwnerBps: owner, ChainBps: chain, TreasuryBps: treasury}
		if err := saveParams(c.tx, c.params); err != nil {
			return err
		}
		return c.emit(eventlog.KindDefaultSharesSet, eventlog.DefaultSharesSet{
			OwnerBps: owner, ChainBps: chain, TreasuryBps: treasury,
		})
	})
}

// SetDecayFactor sets the per-generation decay in bps (at most 10000).
func (e *Engine) SetDecayFactor(ctx context.Context, caller account.Address, bps uint16) error {
	return e.setParam(ctx, caller, "decay_factor", func(p *Params) (string, error) {
		if err := ValidateDecayFactor(bps); err != nil {
			return "", err
		}
		p.DecayFactor = bps
		return strconv.Itoa(int(bps)), nil
	})
}

// SetMaxChainDepth sets the receipt-chain hop limit (1..MaxChainDepthLimit).
func (e *Engine) SetMaxChainDepth(ctx context.Context, caller account.Address, n int) error {
	return e.setParam(ctx, caller, "max_chain_depth", func(p *Params) (string, error) {
		if err := ValidateChainDepth(n); err != nil {
			return "", err
		}
		p.MaxChainDepth = n
		return strconv.Itoa(n), nil
	})
}

// SetPaymentToken sets the fungible token accepted by token-mode calls.
func (e *Engine) SetPaymentToken(ctx context.Context, caller, token account.Address) error {
	return e.setParam(ctx, caller, "payment_token", func(p *Params) (string, error) {
		return setAddress(&p.PaymentToken, token)
	})
}

// SetTreasury sets the treasury address.
func (e *Engine) SetTreasury(ctx context.Context, caller, treasury account.Address) error {
	return e.setParam(ctx, caller, "treasury", func(p *Params) (string, error) {
		return setAddress(&p.Treasury, treasury)
	})
}

// SetAgentFactory sets the only address allowed to distribute deployment fees.
func (e *Engine) SetAgentFactory(ctx context.Context, caller, factory account.Address) error {
	return e.setParam(ctx, caller, "agent_factory", func(p *Params) (string, error) {
		return setAddress(&p.AgentFactory, factory)
	})
}

// SetCreditPool sets the recipient of the credit pool of deployment fees.
func (e *Engine) SetCreditPool(ctx context.Context, caller, pool account.Address) error {
	return e.setParam(ctx, caller, "credit_pool", func(p *Params) (string, error) {
		return setAddress(&p.CreditPool, pool)
	})
}

// SetFeeShares sets the four deployment-fee pools.
func (e *Engine) SetFeeShares(ctx context.Context, caller account.Address, shares FeeShares) error {
	return e.setParam(ctx, caller, "fee_shares", func(p *Params) (string, error) {
		if err := ValidateFeeShares(shares); err != nil {
			return "", err
		}
		p.FeeShares = shares
		return fmt.Sprintf("%d/%d/%d/%d", shares.ContributorBps, shares.TreasuryBps, shares.CreditBps, shares.CuratorBps), nil
	})
}

// SetCuratorPolicy selects who receives the curator pool.
func (e *Engine) SetCuratorPolicy(ctx context.Context, caller account.Address, policy CuratorPolicy) error {
	return e.setParam(ctx, caller, "curator_policy", func(p *Params) (string, error) {
		if policy > CuratorToTreasury {
			return "", fmt.Errorf("%w: curator policy %d", ErrInvalidParams, policy)
		}
		p.CuratorPolicy = policy
		return policy.String(), nil
	})
}

// Pause blocks new distributions and claims.
func (e *Engine) Pause(ctx context.Context, caller account.Address) error {
	return e.setParam(ctx, caller, "paused", func(p *Params) (string, error) {
		if p.Paused {
			return "", ErrEnforcedPause
		}
		p.Paused = true
		return "true", nil
	})
}

// Unpause lifts a pause.
func (e *Engine) Unpause(ctx context.Context, caller account.Address) error {
	return e.setParam(ctx, caller, "paused", func(p *Params) (string, error) {
		if !p.Paused {
			return "", ErrExpectedPause
		}
		p.Paused = false
		return "false", nil
	})
}

// TransferAdmin hands the admin role to next.
func (e *Engine) TransferAdmin(ctx context.Context, caller, next account.Address) error {
	return e.setParam(ctx, caller, "admin", func(p *Params) (string, error) {
		return setAddress(&p.Admin, next)
	})
}
