package account

import (
	"fmt"
	"strings"
)

// Currency selects which claims-ledger column an amount belongs to.
type Currency uint8

const (
	// Native is the chain's native asset (satoshis).
	Native Currency = 0
	// Token is the single configured fungible payment token.
	Token Currency = 1
)

// Currencies lists every supported currency in key order.
var Currencies = []Currency{Native, Token}

// String returns "native" or "token".
func (c Currency) String() string {
	switch c {
	case Native:
		return "native"
	case Token:
		return "token"
	default:
		return fmt.Sprintf("currency(%d)", uint8(c))
	}
}

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	return c == Native || c == Token
}

// ParseCurrency accepts "native" and "token" (case-insensitive).
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native":
		return Native, nil
	case "token":
		return Token, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
}
