package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrInvalidSeed indicates the seed is empty.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrIndexOutOfRange indicates a payout key index at or above the hardened boundary.
	ErrIndexOutOfRange = errors.New("wallet: key index exceeds maximum (2^31-1)")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrDecryptionFailed indicates a wrong password or corrupted wallet file.
	ErrDecryptionFailed = errors.New("wallet: seed decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates the seed checksum did not verify after decryption.
	ErrChecksumMismatch = errors.New("wallet: seed checksum mismatch")

	// ErrUnsupportedFormat indicates an unknown wallet file magic or version.
	ErrUnsupportedFormat = errors.New("wallet: unsupported wallet file format")

	// ErrWalletExists indicates Create would overwrite an existing file.
	ErrWalletExists = errors.New("wallet: wallet file already exists")

	// ErrWalletNotFound indicates no wallet file at the given path.
	ErrWalletNotFound = errors.New("wallet: wallet file not found")
)
