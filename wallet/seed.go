// Package wallet holds the engine's native payout keys: a BIP39 seed sealed
// on disk with Argon2id + AES-256-GCM and BIP32 payout keys derived from it.
//
// Key hierarchy: m/44'/236'/0'/0/{index}
package wallet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	"golang.org/x/crypto/argon2"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128 // 12-word mnemonic
	Mnemonic24Words = 256 // 24-word mnemonic

	saltLen     = 16
	nonceLen    = 12
	checksumLen = 4
	keyLen      = 32

	formatVersion = 1
)

var magic = []byte("RCPW")

// headerLen is magic(4) || version(1) || time(4) || memory(4) || threads(1) || salt || nonce.
const headerLen = 4 + 1 + 4 + 4 + 1 + saltLen + nonceLen

// KDFParams are the Argon2id cost parameters. They are stored in the sealed
// file so a wallet opens with whatever it was sealed with.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDF is used for wallets created by receiptctl.
var DefaultKDF = KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}

// GenerateMnemonic creates a new BIP39 mnemonic with the specified entropy bits.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// SeedFromMnemonic derives the 64-byte BIP39 seed. The passphrase may be empty.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to derive seed: %w", err)
	}
	return seed, nil
}

// Seal encrypts seed under password.
//
// Output: header || AES-GCM(argon2id(password, salt), nonce, seed || SHA256(seed)[:4])
// The header is passed to GCM as additional data.
func Seal(seed []byte, password string, kdf KDFParams) ([]byte, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}

	header := make([]byte, headerLen)
	copy(header, magic)
	header[4] = formatVersion
	binary.BigEndian.PutUint32(header[5:], kdf.Time)
	binary.BigEndian.PutUint32(header[9:], kdf.Memory)
	header[13] = kdf.Threads
	if _, err := rand.Read(header[14:]); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate salt: %w", err)
	}
	salt := header[14 : 14+saltLen]
	nonce := header[14+saltLen:]

	gcm, err := newGCM(password, salt, kdf)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(seed)
	plaintext := append(append(make([]byte, 0, len(seed)+checksumLen), seed...), sum[:checksumLen]...)
	return gcm.Seal(header, nonce, plaintext, header), nil
}

// Open reverses Seal.
func Open(sealed []byte, password string) ([]byte, error) {
	if len(sealed) < headerLen+checksumLen || !bytes.Equal(sealed[:4], magic) || sealed[4] != formatVersion {
		return nil, ErrUnsupportedFormat
	}
	header := sealed[:headerLen]
	kdf := KDFParams{
		Time:    binary.BigEndian.Uint32(header[5:]),
		Memory:  binary.BigEndian.Uint32(header[9:]),
		Threads: header[13],
	}
	if kdf.Time == 0 || kdf.Threads == 0 {
		return nil, ErrUnsupportedFormat
	}
	salt := header[14 : 14+saltLen]
	nonce := header[14+saltLen:]

	gcm, err := newGCM(password, salt, kdf)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := gcm.Open(nil, nonce, sealed[headerLen:], header)
	if err != nil || len(plaintext) <= checksumLen {
		return nil, ErrDecryptionFailed
	}

	seed := plaintext[:len(plaintext)-checksumLen]
	sum := sha256.Sum256(seed)
	if !bytes.Equal(plaintext[len(seed):], sum[:checksumLen]) {
		return nil, ErrChecksumMismatch
	}
	return seed, nil
}

func newGCM(password string, salt []byte, kdf KDFParams) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, kdf.Time, kdf.Memory, kdf.Threads, keyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("wallet: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceLen)
	if err != nil {
		return nil, fmt.Errorf("wallet: GCM creation failed: %w", err)
	}
	return gcm, nil
}
