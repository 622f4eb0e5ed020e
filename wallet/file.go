package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Create derives the seed from mnemonic and passphrase, seals it under
// password and writes it to path with 0600 permissions. An existing file is
// never overwritten.
func Create(path, mnemonic, passphrase, password string, kdf KDFParams) error {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return err
	}
	sealed, err := Seal(seed, password, kdf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("wallet: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrWalletExists, path)
	}
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	if _, err := f.Write(sealed); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("wallet: write %s: %w", path, err)
	}
	return f.Close()
}

// Load opens the sealed wallet at path.
func Load(path, password string, mainnet bool) (*Wallet, error) {
	sealed, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	seed, err := Open(sealed, password)
	if err != nil {
		return nil, err
	}
	return New(seed, mainnet)
}
