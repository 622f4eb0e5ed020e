package revshare

import (
	"fmt"
	"math/bits"

	"github.com/bitfsorg/libreceipt-go/account"
)

const (
	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10000

	// MaxContributors bounds a bundle's contributor fan-out.
	MaxContributors = 50

	// MaxChainDepthLimit bounds the admin-configurable chain depth.
	MaxChainDepthLimit = 32

	// DefaultMaxChainDepth is the chain depth of a freshly initialised engine.
	DefaultMaxChainDepth = 5

	// DefaultDecayFactor halves an ancestor's weight per generation.
	DefaultDecayFactor = 5000
)

// ShareConfig splits revenue between the agent (owner), its receipt chain
// and the treasury. IsSet distinguishes an explicit per-agent config from
// the default fallback.
type ShareConfig struct {
	OwnerBps    uint16
	ChainBps    uint16
	TreasuryBps uint16
	BundleID    uint64
	IsSet       bool
}

// Valid reports whether the three shares sum to exactly 10000 bps.
func (c ShareConfig) Valid() bool {
	return uint32(c.OwnerBps)+uint32(c.ChainBps)+uint32(c.TreasuryBps) == BpsDenominator
}

// ContributorWeight is one entry of a bundle's contributor list.
type ContributorWeight struct {
	Contributor account.Address `yaml:"contributor" json:"contributor"`
	WeightBps   uint16          `yaml:"weight_bps" json:"weight_bps"`
}

// Bundle is a knowledge bundle as reported by the bundle collaborator.
type Bundle struct {
	ID           uint64              `yaml:"id" json:"id"`
	Creator      account.Address     `yaml:"creator" json:"creator"`
	Active       bool                `yaml:"active" json:"active"`
	Contributors []ContributorWeight `yaml:"contributors" json:"contributors"`
}

// FeeShares splits a deployment fee into four pools.
type FeeShares struct {
	ContributorBps uint16 `yaml:"contributor_bps" json:"contributor_bps"`
	TreasuryBps    uint16 `yaml:"treasury_bps" json:"treasury_bps"`
	CreditBps      uint16 `yaml:"credit_bps" json:"credit_bps"`
	CuratorBps     uint16 `yaml:"curator_bps" json:"curator_bps"`
}

// Valid reports whether the four pools sum to exactly 10000 bps.
func (f FeeShares) Valid() bool {
	return uint32(f.ContributorBps)+uint32(f.TreasuryBps)+uint32(f.CreditBps)+uint32(f.CuratorBps) == BpsDenominator
}

// CuratorPolicy selects who receives the curator pool of a deployment fee.
type CuratorPolicy uint8

const (
	// CuratorToCreator credits the bundle creator, or the treasury when the
	// bundle has no creator.
	CuratorToCreator CuratorPolicy = iota
	// CuratorToTreasury credits the treasury.
	CuratorToTreasury
)

// String returns the policy's config name.
func (p CuratorPolicy) String() string {
	switch p {
	case CuratorToCreator:
		return "creator"
	case CuratorToTreasury:
		return "treasury"
	default:
		return "unknown"
	}
}

// ParseCuratorPolicy parses "creator" or "treasury".
func ParseCuratorPolicy(s string) (CuratorPolicy, error) {
	switch s {
	case "creator", "":
		return CuratorToCreator, nil
	case "treasury":
		return CuratorToTreasury, nil
	}
	return 0, ErrInvalidParams
}

// Distribution represents a single credit produced by a split.
type Distribution struct {
	Address account.Address
	Amount  uint64
}

// Split is the waterfall result for one revenue payment.
type Split struct {
	Owner    uint64
	Chain    uint64
	Treasury uint64
}

// RevenueResult reports what one DistributeRevenue call credited.
type RevenueResult struct {
	EventID   uint64
	Amount    uint64
	Owner     uint64
	Ancestors []Distribution // nearest first, zero amounts omitted
	Treasury  uint64         // includes a folded chain pool
}

// DeploymentPayout is the write-once record of one deployment fee split.
type DeploymentPayout struct {
	DeploymentID      uint64
	BundleID          uint64
	Currency          account.Currency
	ContributorPayout uint64
	TreasuryPayout    uint64
	PoolPayout        uint64
	CuratorPayout     uint64
	Curator           account.Address
}

// Total returns the fee the record accounts for, or ErrOverflow when the
// pools cannot have come from one fee.
func (p DeploymentPayout) Total() (uint64, error) {
	var sum uint64
	for _, v := range []uint64{p.ContributorPayout, p.TreasuryPayout, p.PoolPayout, p.CuratorPayout} {
		var carry uint64
		sum, carry = bits.Add64(sum, v, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: deployment %d pools", ErrOverflow, p.DeploymentID)
		}
	}
	return sum, nil
}
