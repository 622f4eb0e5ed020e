package account

import (
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

// AddressSize is the length of a P2PKH public key hash.
const AddressSize = 20

// Address identifies an agent, contributor, treasury or any other recipient
// by its P2PKH public key hash.
type Address [AddressSize]byte

// ZeroAddress is the unset address. It is never a valid recipient.
var ZeroAddress Address

// ParseAddress decodes a base58check P2PKH address (mainnet or testnet).
func ParseAddress(s string) (Address, error) {
	var a Address
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return a, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	pkh := []byte(addr.PublicKeyHash)
	if len(pkh) != AddressSize {
		return a, fmt.Errorf("%w: public key hash is %d bytes", ErrInvalidAddress, len(pkh))
	}
	copy(a[:], pkh)
	return a, nil
}

// AddressFromBytes copies a 20-byte public key hash into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex returns the lowercase hex encoding of the public key hash.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// String returns the mainnet base58check encoding. If encoding fails the
// hex form is returned so log lines never lose the identity.
func (a Address) String() string {
	addr, err := script.NewAddressFromPublicKeyHash(a[:], true)
	if err != nil {
		return a.Hex()
	}
	return addr.AddressString
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Both base58check and
// 40-character hex forms are accepted; an empty value yields the zero address.
func (a *Address) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		*a = ZeroAddress
		return nil
	}
	if len(s) == 2*AddressSize {
		if b, err := hex.DecodeString(s); err == nil {
			copy(a[:], b)
			return nil
		}
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
