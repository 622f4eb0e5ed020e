package ledger

import "errors"

var (
	// ErrNothingToClaim indicates the caller has a zero claimable balance.
	ErrNothingToClaim = errors.New("ledger: nothing to claim")

	// ErrZeroAddress indicates a credit to the zero address.
	ErrZeroAddress = errors.New("ledger: zero address")

	// ErrOverflow indicates a balance or total would exceed 2^64-1.
	ErrOverflow = errors.New("ledger: amount overflow")

	// ErrConservationViolation indicates balances no longer equal credited minus claimed.
	ErrConservationViolation = errors.New("ledger: conservation violated")

	// ErrRestoreExceedsClaimed indicates a restore larger than what was claimed.
	ErrRestoreExceedsClaimed = errors.New("ledger: restore exceeds claimed amount")

	// ErrCorruptValue indicates a stored amount is not 8 bytes.
	ErrCorruptValue = errors.New("ledger: corrupt stored value")
)
