package revshare

import (
	"context"
	"errors"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/eventlog"
	"github.com/bitfsorg/libreceipt-go/ledger"
	"github.com/bitfsorg/libreceipt-go/lineage"
	"github.com/bitfsorg/libreceipt-go/store"
)

// RevenueBalance summarises one address's position in one currency.
type RevenueBalance struct {
	Claimable    uint64 `json:"claimable"`
	TotalEarned  uint64 `json:"total_earned"`
	TotalClaimed uint64 `json:"total_claimed"`
}

// Params returns the current engine parameters.
func (e *Engine) Params() (Params, error) {
	var p Params
	err := e.view(func(tx store.Tx) error {
		var err error
		p, err = loadParams(tx)
		return err
	})
	return p, err
}

// GetShareConfig returns agent's explicit config, or the default split with
// IsSet false.
func (e *Engine) GetShareConfig(agent account.Address) (ShareConfig, error) {
	var cfg ShareConfig
	err := e.view(func(tx store.Tx) error {
		p, err := loadParams(tx)
		if err != nil {
			return err
		}
		cfg, err = shareConfigTx(tx, agent, p.Defaults)
		return err
	})
	return cfg, err
}

func (e *Engine) readAmount(fn func(tx store.Tx) (uint64, error)) (uint64, error) {
	var v uint64
	err := e.view(func(tx store.Tx) error {
		var err error
		v, err = fn(tx)
		return err
	})
	return v, err
}

// GetClaimableBalance returns addr's claimable token balance.
func (e *Engine) GetClaimableBalance(addr account.Address) (uint64, error) {
	return e.readAmount(func(tx store.Tx) (uint64, error) { return ledger.Balance(tx, addr, account.Token) })
}

// GetClaimableNativeBalance returns addr's claimable native balance.
func (e *Engine) GetClaimableNativeBalance(addr account.Address) (uint64, error) {
	return e.readAmount(func(tx store.Tx) (uint64, error) { return ledger.Balance(tx, addr, account.Native) })
}

// GetRevenueBalance returns addr's claimable, earned and claimed amounts.
func (e *Engine) GetRevenueBalance(addr account.Address, cur account.Currency) (RevenueBalance, error) {
	var b RevenueBalance
	err := e.view(func(tx store.Tx) error {
		var err error
		if b.Claimable, err = ledger.Balance(tx, addr, cur); err != nil {
			return err
		}
		if b.TotalEarned, err = ledger.AddressEarned(tx, addr, cur); err != nil {
			return err
		}
		b.TotalClaimed, err = ledger.AddressClaimed(tx, addr, cur)
		return err
	})
	return b, err
}

// GetRevenueEvent returns the revenue event with the given ID.
func (e *Engine) GetRevenueEvent(id uint64) (*eventlog.RevenueEvent, error) {
	var ev *eventlog.RevenueEvent
	err := e.view(func(tx store.Tx) error {
		var err error
		ev, err = eventlog.Revenue(tx, id)
		return err
	})
	return ev, err
}

// GetRevenueHistory returns the IDs of agent's revenue events, oldest first.
func (e *Engine) GetRevenueHistory(agent account.Address) ([]uint64, error) {
	var ids []uint64
	err := e.view(func(tx store.Tx) error {
		var err error
		ids, err = eventlog.History(tx, agent)
		return err
	})
	return ids, err
}

// GetReceiptChain returns agent's ancestors, nearest first, bounded by the
// configured max chain depth.
func (e *Engine) GetReceiptChain(ctx context.Context, agent account.Address) ([]account.Address, error) {
	var chain []account.Address
	err := e.view(func(tx store.Tx) error {
		p, err := loadParams(tx)
		if err != nil {
			return err
		}
		chain = e.resolver(tx).ReceiptChain(ctx, agent, p.MaxChainDepth)
		return nil
	})
	return chain, err
}

// GetSpawnRecord returns the deployment that created agent. It wraps
// lineage.ErrNotFound for an agent that was never deployed.
func (e *Engine) GetSpawnRecord(agent account.Address) (lineage.Record, error) {
	var rec lineage.Record
	err := e.view(func(tx store.Tx) error {
		var err error
		rec, err = lineage.LookupTx(tx, agent)
		return err
	})
	return rec, err
}

// GetDeployment returns the spawn record with the given deployment ID.
func (e *Engine) GetDeployment(deploymentID uint64) (lineage.Record, error) {
	var rec lineage.Record
	err := e.view(func(tx store.Tx) error {
		var err error
		rec, err = lineage.GetTx(tx, deploymentID)
		return err
	})
	return rec, err
}

// GetAgentTotalDistributed returns the revenue ever distributed for agent.
func (e *Engine) GetAgentTotalDistributed(agent account.Address, cur account.Currency) (uint64, error) {
	return e.readAmount(func(tx store.Tx) (uint64, error) { return agentTotal(tx, agent, cur) })
}

// GetAddressTotalClaimed returns everything addr has claimed.
func (e *Engine) GetAddressTotalClaimed(addr account.Address, cur account.Currency) (uint64, error) {
	return e.readAmount(func(tx store.Tx) (uint64, error) { return ledger.AddressClaimed(tx, addr, cur) })
}

// GetAddressTotalEarned returns everything ever credited to addr.
func (e *Engine) GetAddressTotalEarned(addr account.Address, cur account.Currency) (uint64, error) {
	return e.readAmount(func(tx store.Tx) (uint64, error) { return ledger.AddressEarned(tx, addr, cur) })
}

// GetTotalDistributed returns everything credited in cur, by revenue and
// deployment fees alike.
func (e *Engine) GetTotalDistributed(cur account.Currency) (uint64, error) {
	return e.readAmount(func(tx store.Tx) (uint64, error) { return ledger.TotalCredited(tx, cur) })
}

// GetTotalClaimed returns everything claimed in cur.
func (e *Engine) GetTotalClaimed(cur account.Currency) (uint64, error) {
	return e.readAmount(func(tx store.Tx) (uint64, error) { return ledger.TotalClaimed(tx, cur) })
}

// GetEventCount returns the number of revenue events.
func (e *Engine) GetEventCount() (uint64, error) {
	return e.readAmount(func(tx store.Tx) (uint64, error) { return eventlog.Count(tx), nil })
}

// GetDeploymentPayout returns a deployment's payout record.
func (e *Engine) GetDeploymentPayout(deploymentID uint64) (*DeploymentPayout, error) {
	var rec *DeploymentPayout
	err := e.view(func(tx store.Tx) error {
		var err error
		rec, err = loadPayout(tx, deploymentID)
		return err
	})
	return rec, err
}

// Events returns up to limit emitted events with Seq > after.
func (e *Engine) Events(after uint64, limit int) ([]eventlog.Event, error) {
	var evs []eventlog.Event
	err := e.view(func(tx store.Tx) error {
		var err error
		evs, err = eventlog.Since(tx, after, limit)
		return err
	})
	return evs, err
}

// Audit checks ledger conservation for every currency.
func (e *Engine) Audit() error {
	return e.view(func(tx store.Tx) error {
		var errs []error
		for _, cur := range account.Currencies {
			if err := ledger.Audit(tx, cur); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
