// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/bitfsorg/libreceipt-go/revshare"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks the process settings and returns the first error
// encountered, or nil if valid. The engine section is checked separately by
// ValidateEngine, since it is only needed for init.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	seen := make(map[uint64]bool, len(cfg.Bundles))
	for _, b := range cfg.Bundles {
		if seen[b.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateBundle, b.ID)
		}
		seen[b.ID] = true
		if err := revshare.ValidateContributors(b.Contributors); err != nil {
			return fmt.Errorf("config: bundle %d: %w", b.ID, err)
		}
	}

	return nil
}

// ValidateEngine checks that the engine section yields valid genesis
// parameters.
func ValidateEngine(cfg Config) error {
	if _, err := cfg.Params(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEngine, err)
	}
	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
