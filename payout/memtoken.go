package payout

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/bitfsorg/libreceipt-go/account"
)

// Compile-time interface check.
var _ TokenTransferer = (*MemToken)(nil)

type allowanceKey struct {
	owner, spender account.Address
}

// MemToken is an in-memory fungible token used by tests and the CLI demo
// mode. Transfer pays out of Custody; TransferFrom spends Custody's
// allowance from the payer.
type MemToken struct {
	Custody account.Address

	// OnTransfer, if set, runs before every transfer or pull without the
	// token lock held. It lets tests model a token that calls back into
	// the engine mid-transfer.
	OnTransfer func(ctx context.Context)

	mu         sync.Mutex
	balances   map[account.Address]uint64
	allowances map[allowanceKey]uint64
	fail       error
}

// NewMemToken creates an empty token whose custody account is custody.
func NewMemToken(custody account.Address) *MemToken {
	return &MemToken{
		Custody:    custody,
		balances:   make(map[account.Address]uint64),
		allowances: make(map[allowanceKey]uint64),
	}
}

// Mint credits amount to addr.
func (m *MemToken) Mint(addr account.Address, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] += amount
}

// Approve lets spender pull up to amount from owner.
func (m *MemToken) Approve(owner, spender account.Address, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey{owner, spender}] = amount
}

// BalanceOf returns addr's token balance.
func (m *MemToken) BalanceOf(addr account.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr]
}

// Allowance returns how much spender may still pull from owner.
func (m *MemToken) Allowance(owner, spender account.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[allowanceKey{owner, spender}]
}

// FailNext makes the next transfer or pull return err.
func (m *MemToken) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Transfer moves amount from Custody to to.
func (m *MemToken) Transfer(ctx context.Context, to account.Address, amount uint64) error {
	if m.OnTransfer != nil {
		m.OnTransfer(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	return m.move(m.Custody, to, amount)
}

// TransferFrom moves amount from from to to, spending Custody's allowance.
func (m *MemToken) TransferFrom(ctx context.Context, from, to account.Address, amount uint64) error {
	if m.OnTransfer != nil {
		m.OnTransfer(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	key := allowanceKey{from, m.Custody}
	if m.allowances[key] < amount {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientAllowance, m.allowances[key], amount)
	}
	if err := m.move(from, to, amount); err != nil {
		return err
	}
	m.allowances[key] -= amount
	return nil
}

func (m *MemToken) takeFailure() error {
	err := m.fail
	m.fail = nil
	return err
}

func (m *MemToken) move(from, to account.Address, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if m.balances[from] < amount {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientFunds, m.balances[from], amount)
	}
	if _, carry := bits.Add64(m.balances[to], amount, 0); carry != 0 && from != to {
		return fmt.Errorf("payout: balance overflow for %s", to)
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}
