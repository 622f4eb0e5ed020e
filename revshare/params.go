package revshare

import (
	"encoding/binary"
	"fmt"

	"github.com/bitfsorg/libreceipt-go/account"
)

// Params is the engine's whole mutable configuration. It lives in the store
// and changes only through the admin setters on Engine.
type Params struct {
	Admin         account.Address
	Treasury      account.Address
	AgentFactory  account.Address
	CreditPool    account.Address // zero routes the credit pool to Treasury
	PaymentToken  account.Address // zero disables token mode
	DecayFactor   uint16
	MaxChainDepth int
	Defaults      ShareConfig
	FeeShares     FeeShares
	CuratorPolicy CuratorPolicy
	Paused        bool
}

// DefaultParams returns the genesis configuration for admin and treasury:
// a 70/20/10 default split, half-life decay, depth 5, and fee pools of
// 70/15/10/5 (contributors, treasury, credit pool, curator).
func DefaultParams(admin, treasury account.Address) Params {
	return Params{
		Admin:         admin,
		Treasury:      treasury,
		DecayFactor:   DefaultDecayFactor,
		MaxChainDepth: DefaultMaxChainDepth,
		Defaults:      ShareConfig{OwnerBps: 7000, ChainBps: 2000, TreasuryBps: 1000},
		FeeShares:     FeeShares{ContributorBps: 7000, TreasuryBps: 1500, CreditBps: 1000, CuratorBps: 500},
		CuratorPolicy: CuratorToCreator,
	}
}

// Validate checks every field's invariant.
func (p Params) Validate() error {
	if p.Admin.IsZero() {
		return fmt.Errorf("%w: admin", ErrZeroAddress)
	}
	if p.Treasury.IsZero() {
		return fmt.Errorf("%w: treasury", ErrZeroAddress)
	}
	if err := ValidateShares(p.Defaults.OwnerBps, p.Defaults.ChainBps, p.Defaults.TreasuryBps); err != nil {
		return err
	}
	if err := ValidateFeeShares(p.FeeShares); err != nil {
		return err
	}
	if err := ValidateDecayFactor(p.DecayFactor); err != nil {
		return err
	}
	if err := ValidateChainDepth(p.MaxChainDepth); err != nil {
		return err
	}
	if p.CuratorPolicy > CuratorToTreasury {
		return fmt.Errorf("%w: curator policy %d", ErrInvalidParams, p.CuratorPolicy)
	}
	return nil
}

// TokenEnabled reports whether a payment token is configured.
func (p Params) TokenEnabled() bool { return !p.PaymentToken.IsZero() }

// creditPool returns where the credit pool of a fee is paid.
func (p Params) creditPool() account.Address {
	if p.CreditPool.IsZero() {
		return p.Treasury
	}
	return p.CreditPool
}

const (
	paramsVersion = 1
	paramsSize    = 120 // version(1) + 5 addresses(100) + decay(2) + depth(1) + defaults(6) + fee(8) + policy(1) + flags(1)
)

// SerializeParams encodes Params to binary format.
func SerializeParams(p Params) []byte {
	buf := make([]byte, paramsSize)
	buf[0] = paramsVersion
	off := 1
	for _, a := range []account.Address{p.Admin, p.Treasury, p.AgentFactory, p.CreditPool, p.PaymentToken} {
		copy(buf[off:off+20], a[:])
		off += 20
	}
	binary.BigEndian.PutUint16(buf[off:off+2], p.DecayFactor)
	off += 2
	buf[off] = byte(p.MaxChainDepth)
	off++
	for _, v := range []uint16{
		p.Defaults.OwnerBps, p.Defaults.ChainBps, p.Defaults.TreasuryBps,
		p.FeeShares.ContributorBps, p.FeeShares.TreasuryBps, p.FeeShares.CreditBps, p.FeeShares.CuratorBps,
	} {
		binary.BigEndian.PutUint16(buf[off:off+2], v)
		off += 2
	}
	buf[off] = byte(p.CuratorPolicy)
	off++
	if p.Paused {
		buf[off] = 0x01
	}
	return buf
}

// DeserializeParams decodes binary data into Params and validates it.
func DeserializeParams(data []byte) (Params, error) {
	var p Params
	if len(data) != paramsSize {
		return p, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidParams, paramsSize, len(data))
	}
	if data[0] != paramsVersion {
		return p, fmt.Errorf("%w: version %d", ErrInvalidParams, data[0])
	}
	off := 1
	for _, a := range []*account.Address{&p.Admin, &p.Treasury, &p.AgentFactory, &p.CreditPool, &p.PaymentToken} {
		copy(a[:], data[off:off+20])
		off += 20
	}
	p.DecayFactor = binary.BigEndian.Uint16(data[off : off+2])
	off += 2
	p.MaxChainDepth = int(data[off])
	off++
	for _, v := range []*uint16{
		&p.Defaults.OwnerBps, &p.Defaults.ChainBps, &p.Defaults.TreasuryBps,
		&p.FeeShares.ContributorBps, &p.FeeShares.TreasuryBps, &p.FeeShares.CreditBps, &p.FeeShares.CuratorBps,
	} {
		*v = binary.BigEndian.Uint16(data[off : off+2])
		off += 2
	}
	p.CuratorPolicy = CuratorPolicy(data[off])
	off++
	p.Paused = data[off]&0x01 != 0

	if err := p.Validate(); err != nil {
		return Params{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return p, nil
}
