package payout

import "errors"

var (
	// ErrZeroAddress indicates a transfer to or from the zero address.
	ErrZeroAddress = errors.New("payout: zero address")

	// ErrZeroAmount indicates a transfer of zero units.
	ErrZeroAmount = errors.New("payout: zero amount")

	// ErrInsufficientFunds indicates the paying wallet cannot cover the transfer.
	ErrInsufficientFunds = errors.New("payout: insufficient funds")

	// ErrInsufficientAllowance indicates the payer has not approved enough tokens.
	ErrInsufficientAllowance = errors.New("payout: insufficient allowance")

	// ErrBelowDust indicates a native payout smaller than the dust limit.
	ErrBelowDust = errors.New("payout: amount below dust limit")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("payout: nil parameter")

	// ErrSigningFailed indicates the payout transaction could not be built or signed.
	ErrSigningFailed = errors.New("payout: signing failed")

	// ErrTokenRejected indicates the token gateway refused a transfer.
	ErrTokenRejected = errors.New("payout: token transfer rejected")

	// ErrOutcomeUnknown indicates a transfer was sent but it is not known
	// whether it took effect.
	ErrOutcomeUnknown = errors.New("payout: transfer outcome unknown")

	// ErrInvalidTx indicates an incoming transaction could not be parsed or
	// does not match its txid.
	ErrInvalidTx = errors.New("payout: invalid transaction")

	// ErrNoMatchingOutput indicates an incoming transaction pays nothing to
	// the receiving wallet.
	ErrNoMatchingOutput = errors.New("payout: no output pays the wallet")

	// ErrUnconfirmed indicates an incoming transaction lacks the required
	// confirmations.
	ErrUnconfirmed = errors.New("payout: transaction not confirmed")

	// ErrPaymentNotFound indicates an unknown incoming txid.
	ErrPaymentNotFound = errors.New("payout: payment not found")
)
