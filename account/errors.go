package account

import "errors"

var (
	// ErrInvalidAddress indicates an address string or byte slice is malformed.
	ErrInvalidAddress = errors.New("account: invalid address")

	// ErrInvalidCurrency indicates an unknown currency name or code.
	ErrInvalidCurrency = errors.New("account: invalid currency")
)
