package revshare

import (
	"errors"

	"github.com/bitfsorg/libreceipt-go/eventlog"
	"github.com/bitfsorg/libreceipt-go/ledger"
)

var (
	// ErrInvalidShares indicates owner, chain and treasury bps do not sum to 10000.
	ErrInvalidShares = errors.New("revshare: shares must sum to 10000 bps")

	// ErrZeroAddress indicates a zero address where a real one is required.
	ErrZeroAddress = errors.New("revshare: zero address")

	// ErrZeroAmount indicates a distribution or fee of zero.
	ErrZeroAmount = errors.New("revshare: zero amount")

	// ErrInvalidDecayFactor indicates a decay factor above 10000 bps.
	ErrInvalidDecayFactor = errors.New("revshare: invalid decay factor")

	// ErrInvalidChainDepth indicates a max chain depth outside 1..MaxChainDepthLimit.
	ErrInvalidChainDepth = errors.New("revshare: invalid max chain depth")

	// ErrInvalidWeights indicates contributor or fee-pool weights that do not sum to 10000.
	ErrInvalidWeights = errors.New("revshare: weights must sum to 10000 bps")

	// ErrTooManyContributors indicates a bundle over MaxContributors, or with none.
	ErrTooManyContributors = errors.New("revshare: contributor count out of range")

	// ErrOverflow indicates an amount that cannot be represented.
	ErrOverflow = errors.New("revshare: amount overflow")

	// ErrBundleNotActive indicates the bundle is missing or deactivated.
	ErrBundleNotActive = errors.New("revshare: bundle not active")

	// ErrPayoutRecorded indicates the deployment's payout record already exists.
	ErrPayoutRecorded = errors.New("revshare: deployment payout already recorded")

	// ErrPayoutNotFound indicates no payout record exists for the deployment.
	ErrPayoutNotFound = errors.New("revshare: deployment payout not found")

	// ErrAgentNotActive indicates the agent directory does not know the agent as active.
	ErrAgentNotActive = errors.New("revshare: agent not active")

	// ErrTokenNotConfigured indicates a token-mode call with no payment token set.
	ErrTokenNotConfigured = errors.New("revshare: payment token not configured")

	// ErrUnauthorized indicates the caller lacks the required role.
	ErrUnauthorized = errors.New("revshare: unauthorized")

	// ErrTransferFailed wraps a failing transfer collaborator.
	ErrTransferFailed = errors.New("revshare: transfer failed")

	// ErrEnforcedPause indicates the engine is paused.
	ErrEnforcedPause = errors.New("revshare: paused")

	// ErrExpectedPause indicates Unpause was called while not paused.
	ErrExpectedPause = errors.New("revshare: not paused")

	// ErrReentrantCall indicates a guarded call was entered from inside another.
	ErrReentrantCall = errors.New("revshare: reentrant call")

	// ErrNotInitialized indicates the store holds no engine parameters yet.
	ErrNotInitialized = errors.New("revshare: engine not initialized")

	// ErrAlreadyInitialized indicates Init was called on an initialized store.
	ErrAlreadyInitialized = errors.New("revshare: engine already initialized")

	// ErrNativeNotConfigured indicates a native claim with no native transferer.
	ErrNativeNotConfigured = errors.New("revshare: native payouts not configured")

	// ErrInvalidParams indicates stored engine parameters are malformed.
	ErrInvalidParams = errors.New("revshare: invalid params data")

	// ErrInvalidShareData indicates a stored share config is malformed.
	ErrInvalidShareData = errors.New("revshare: invalid share data")

	// ErrInvalidPayoutData indicates a stored payout record is malformed.
	ErrInvalidPayoutData = errors.New("revshare: invalid payout data")

	// ErrClaimPending indicates a claim's payout was sent but its outcome is
	// unknown. The amount stays withdrawn until ResolvePendingClaim settles it.
	ErrClaimPending = errors.New("revshare: claim payout pending")

	// ErrPendingClaimNotFound indicates no pending claim has the given ID.
	ErrPendingClaimNotFound = errors.New("revshare: pending claim not found")

	// ErrInvalidPendingData indicates a stored pending claim is malformed.
	ErrInvalidPendingData = errors.New("revshare: invalid pending claim data")

	// ErrPaymentsNotConfigured indicates a native distribution with no
	// PaymentSource to verify the incoming payment.
	ErrPaymentsNotConfigured = errors.New("revshare: native payments not configured")

	// ErrInvalidPayment indicates a malformed payment txid.
	ErrInvalidPayment = errors.New("revshare: invalid payment txid")

	// ErrPaymentConsumed indicates the incoming payment was already distributed.
	ErrPaymentConsumed = errors.New("revshare: payment already consumed")

	// ErrPaymentMismatch indicates the incoming payment does not carry the fee.
	ErrPaymentMismatch = errors.New("revshare: payment does not match fee")

	// ErrConservationViolation indicates a split whose parts do not sum to its input.
	ErrConservationViolation = errors.New("revshare: conservation violated")
)

// Errors owned by the ledger and event log, re-exported so engine callers
// can match on a single package.
var (
	ErrNothingToClaim = ledger.ErrNothingToClaim
	ErrEventNotFound  = eventlog.ErrEventNotFound
)
