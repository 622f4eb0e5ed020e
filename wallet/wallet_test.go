package wallet

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var cheapKDF = KDFParams{Time: 1, Memory: 64, Threads: 1}

func testWallet(t *testing.T) *Wallet {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	w, err := New(seed, false)
	require.NoError(t, err)
	return w
}

// ---------------------------------------------------------------------------
// Mnemonics and seeds
// ---------------------------------------------------------------------------

func TestGenerateMnemonic(t *testing.T) {
	tests := []struct {
		bits  int
		words int
	}{
		{Mnemonic12Words, 12},
		{Mnemonic24Words, 24},
	}
	for _, tt := range tests {
		m, err := GenerateMnemonic(tt.bits)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(m), tt.words)
		_, err = SeedFromMnemonic(m, "")
		assert.NoError(t, err)
	}

	_, err := GenerateMnemonic(192)
	assert.ErrorIs(t, err, ErrInvalidEntropy)
}

func TestSeedFromMnemonic(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "TREZOR")
	require.NoError(t, err)
	assert.Equal(t,
		"c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04",
		hex.EncodeToString(seed))

	plain, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.NotEqual(t, seed, plain)

	_, err = SeedFromMnemonic("abandon abandon abandon", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

// ---------------------------------------------------------------------------
// Sealing
// ---------------------------------------------------------------------------

func TestSealOpen(t *testing.T) {
	seed := []byte("0123456789abcdef0123456789abcdef")
	sealed, err := Seal(seed, "hunter2", cheapKDF)
	require.NoError(t, err)
	assert.Len(t, sealed, headerLen+len(seed)+checksumLen+16)

	got, err := Open(sealed, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, seed, got)

	again, err := Seal(seed, "hunter2", cheapKDF)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "salt and nonce are random")
}

func TestOpen_Rejections(t *testing.T) {
	sealed, err := Seal([]byte("seed-bytes"), "pw", cheapKDF)
	require.NoError(t, err)

	mutate := func(i int) []byte {
		c := append([]byte(nil), sealed...)
		c[i] ^= 0x01
		return c
	}

	tests := []struct {
		name   string
		input  []byte
		pw     string
		target error
	}{
		{"wrong password", sealed, "PW", ErrDecryptionFailed},
		{"tampered salt", mutate(14), "pw", ErrDecryptionFailed},
		{"tampered ciphertext", mutate(len(sealed) - 1), "pw", ErrDecryptionFailed},
		{"bad magic", mutate(0), "pw", ErrUnsupportedFormat},
		{"bad version", mutate(4), "pw", ErrUnsupportedFormat},
		{"truncated", sealed[:headerLen], "pw", ErrUnsupportedFormat},
		{"empty", nil, "pw", ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.input, tt.pw)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, err = Seal(nil, "pw", cheapKDF)
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

// ---------------------------------------------------------------------------
// Derivation
// ---------------------------------------------------------------------------

func TestPayoutKey(t *testing.T) {
	w := testWallet(t)

	k0, err := w.PayoutKey(0)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/236'/0'/0/0", k0.Path)
	assert.False(t, k0.Address.IsZero())
	assert.Equal(t, k0.PrivateKey.PubKey().Hash(), k0.Address[:])

	again, err := testWallet(t).PayoutKey(0)
	require.NoError(t, err)
	assert.Equal(t, k0.Address, again.Address)

	k1, err := w.PayoutKey(1)
	require.NoError(t, err)
	assert.NotEqual(t, k0.Address, k1.Address)
	assert.Equal(t, "m/44'/236'/0'/0/1", k1.Path)

	_, err = w.PayoutKey(MaxIndex + 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestPayoutKey_SameOnEveryNetwork(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	main, err := New(seed, true)
	require.NoError(t, err)

	a, err := main.PayoutKey(3)
	require.NoError(t, err)
	b, err := testWallet(t).PayoutKey(3)
	require.NoError(t, err)
	assert.Equal(t, a.Address, b.Address)
}

func TestNew_EmptySeed(t *testing.T) {
	_, err := New(nil, false)
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

// ---------------------------------------------------------------------------
// Wallet files
// ---------------------------------------------------------------------------

func TestCreateLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallet.enc")
	require.NoError(t, Create(path, testMnemonic, "", "pw", cheapKDF))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	w, err := Load(path, "pw", false)
	require.NoError(t, err)
	got, err := w.PayoutKey(0)
	require.NoError(t, err)
	want, err := testWallet(t).PayoutKey(0)
	require.NoError(t, err)
	assert.Equal(t, want.Address, got.Address)

	err = Create(path, testMnemonic, "", "other", cheapKDF)
	assert.ErrorIs(t, err, ErrWalletExists)

	_, err = Load(path, "wrong", false)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestCreateLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.enc"), "pw", false)
	assert.ErrorIs(t, err, ErrWalletNotFound)

	path := filepath.Join(dir, "wallet.enc")
	err = Create(path, "not a mnemonic", "", "pw", cheapKDF)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
