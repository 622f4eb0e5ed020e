package eventlog

import (
	"encoding/json"
	"time"

	"github.com/bitfsorg/libreceipt-go/account"
)

// RevenueEvent is the immutable audit record of one revenue distribution.
// Amounts are the amounts actually credited: ChainAmount is zero when the
// agent had no ancestors and the chain pool was folded into the treasury.
type RevenueEvent struct {
	ID             uint64
	Agent          account.Address
	Source         string
	Amount         uint64
	IsNative       bool
	OwnerAmount    uint64
	ChainAmount    uint64
	TreasuryAmount uint64
	Timestamp      time.Time
}

// Currency returns the ledger currency the event was paid in.
func (e *RevenueEvent) Currency() account.Currency {
	if e.IsNative {
		return account.Native
	}
	return account.Token
}

// Kind names an emitted event type.
type Kind string

// Emitted event kinds consumed by indexers.
const (
	KindRevenueDistributed  Kind = "RevenueDistributed"
	KindContributorCredited Kind = "ContributorCredited"
	KindEarningsClaimed     Kind = "EarningsClaimed"
	KindShareConfigSet      Kind = "ShareConfigSet"
	KindDefaultSharesSet    Kind = "DefaultSharesSet"
	KindFeeDistributed      Kind = "FeeDistributed"
	KindContributorPaid     Kind = "ContributorPaid"
	KindParamsChanged       Kind = "ParamsChanged"
	KindClaimReverted       Kind = "ClaimReverted"
)

// Event is the envelope written to the outbox and delivered to sinks.
// Seq is gap-free and strictly increasing across all kinds.
type Event struct {
	Seq    uint64          `json:"seq"`
	Kind   Kind            `json:"kind"`
	CallID string          `json:"call_id"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// RevenueDistributed is emitted once per successful distribution.
type RevenueDistributed struct {
	EventID        uint64          `json:"event_id"`
	Agent          account.Address `json:"agent"`
	Source         string          `json:"source"`
	Currency       string          `json:"currency"`
	Amount         uint64          `json:"amount"`
	OwnerAmount    uint64          `json:"owner_amount"`
	ChainAmount    uint64          `json:"chain_amount"`
	TreasuryAmount uint64          `json:"treasury_amount"`
	Payment        string          `json:"payment,omitempty"`
}

// ContributorCredited is emitted once per ancestor paid from the chain pool.
type ContributorCredited struct {
	EventID    uint64          `json:"event_id"`
	Agent      account.Address `json:"agent"`
	Ancestor   account.Address `json:"ancestor"`
	Generation int             `json:"generation"`
	Currency   string          `json:"currency"`
	Amount     uint64          `json:"amount"`
}

// EarningsClaimed is emitted when a recipient withdraws a balance.
type EarningsClaimed struct {
	ClaimID   string          `json:"claim_id,omitempty"`
	Recipient account.Address `json:"recipient"`
	Currency  string          `json:"currency"`
	Amount    uint64          `json:"amount"`
}

// ShareConfigSet is emitted when an agent's split is configured.
type ShareConfigSet struct {
	Agent       account.Address `json:"agent"`
	OwnerBps    uint16          `json:"owner_bps"`
	ChainBps    uint16          `json:"chain_bps"`
	TreasuryBps uint16          `json:"treasury_bps"`
	BundleID    uint64          `json:"bundle_id"`
}

// DefaultSharesSet is emitted when the fallback split changes.
type DefaultSharesSet struct {
	OwnerBps    uint16 `json:"owner_bps"`
	ChainBps    uint16 `json:"chain_bps"`
	TreasuryBps uint16 `json:"treasury_bps"`
}

// FeeDistributed is emitted once per deployment fee split.
type FeeDistributed struct {
	DeploymentID    uint64 `json:"deployment_id"`
	BundleID        uint64 `json:"bundle_id"`
	Currency        string `json:"currency"`
	Fee             uint64 `json:"fee"`
	ContributorPool uint64 `json:"contributor_pool"`
	TreasuryPool    uint64 `json:"treasury_pool"`
	CreditPool      uint64 `json:"credit_pool"`
	CuratorPool     uint64 `json:"curator_pool"`
	Payment         string `json:"payment,omitempty"`
}

// ContributorPaid is emitted once per bundle contributor credited from a fee.
type ContributorPaid struct {
	DeploymentID uint64          `json:"deployment_id"`
	BundleID     uint64          `json:"bundle_id"`
	Contributor  account.Address `json:"contributor"`
	Currency     string          `json:"currency"`
	Amount       uint64          `json:"amount"`
}

// ClaimReverted is emitted when a claim whose payout never happened is
// settled by returning the amount to the recipient's balance.
type ClaimReverted struct {
	ClaimID   string          `json:"claim_id"`
	Recipient account.Address `json:"recipient"`
	Currency  string          `json:"currency"`
	Amount    uint64          `json:"amount"`
}

// ParamsChanged is emitted by every admin setter other than the share setters.
type ParamsChanged struct {
	Field string `json:"field"`
	Value string `json:"value"`
}
