package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/libreceipt-go/account"
)

const (
	// BIP44 path constants.
	PurposeBIP44  = 44
	CoinType      = 236
	PayoutAccount = 0
	ExternalChain = 0

	// MaxIndex is the largest non-hardened child index.
	MaxIndex = 1<<31 - 1

	// Hardened is the BIP32 hardened offset.
	Hardened = 0x80000000
)

// Wallet derives payout keys from a BIP39 seed.
type Wallet struct {
	chain *bip32.ExtendedKey // m/44'/236'/0'/0
}

// KeyPair is a derived payout key.
type KeyPair struct {
	PrivateKey *ec.PrivateKey
	Address    account.Address
	Path       string
}

// New creates a Wallet from a BIP39 seed. mainnet selects the extended key
// version bytes; derived keys are identical on every network.
func New(seed []byte, mainnet bool) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	net := &chaincfg.TestNet
	if mainnet {
		net = &chaincfg.MainNet
	}
	key, err := bip32.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	for _, idx := range []uint32{PurposeBIP44 + Hardened, CoinType + Hardened, PayoutAccount + Hardened, ExternalChain} {
		if key, err = key.Child(idx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
		}
	}
	return &Wallet{chain: key}, nil
}

// PayoutKey derives m/44'/236'/0'/0/index.
func (w *Wallet) PayoutKey(index uint32) (*KeyPair, error) {
	if index > MaxIndex {
		return nil, ErrIndexOutOfRange
	}
	child, err := w.chain.Child(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index %d: %w", ErrDerivationFailed, index, err)
	}
	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}
	addr, err := account.AddressFromBytes(priv.PubKey().Hash())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return &KeyPair{
		PrivateKey: priv,
		Address:    addr,
		Path:       fmt.Sprintf("m/44'/%d'/%d'/%d/%d", CoinType, PayoutAccount, ExternalChain, index),
	}, nil
}
