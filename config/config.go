// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the receiptctl configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/network"
	"github.com/bitfsorg/libreceipt-go/revshare"
)

const (
	configFileName = "config.yaml"
	dataDirName    = ".receipt"
	dbFileName     = "receipt.db"
	walletFileName = "wallet.enc"
)

// Config is the on-disk configuration.
type Config struct {
	DataDir    string `yaml:"datadir"`
	ListenAddr string `yaml:"listen"` // metrics endpoint
	Network    string `yaml:"network"`
	LogLevel   string `yaml:"loglevel"`
	LogFile    string `yaml:"logfile,omitempty"`

	Engine  EngineConfig      `yaml:"engine"`
	Node    network.RPCConfig `yaml:"node,omitempty"`
	Token   TokenConfig       `yaml:"token,omitempty"`
	Events  EventsConfig      `yaml:"events,omitempty"`
	Bundles []revshare.Bundle `yaml:"bundles,omitempty"`
}

// EngineConfig holds the genesis parameters written by "receiptctl init".
// After init the store is authoritative and these values are not re-read.
type EngineConfig struct {
	Admin         account.Address    `yaml:"admin"`
	Treasury      account.Address    `yaml:"treasury"`
	AgentFactory  account.Address    `yaml:"agent_factory,omitempty"`
	CreditPool    account.Address    `yaml:"credit_pool,omitempty"`
	PaymentToken  account.Address    `yaml:"payment_token,omitempty"`
	Shares        SharesConfig       `yaml:"shares"`
	FeeShares     revshare.FeeShares `yaml:"fee_shares"`
	DecayFactor   uint16             `yaml:"decay_factor"`
	MaxChainDepth int                `yaml:"max_chain_depth"`
	CuratorPolicy string             `yaml:"curator_policy,omitempty"`
}

// SharesConfig is the default revenue split in basis points.
type SharesConfig struct {
	OwnerBps    uint16 `yaml:"owner_bps"`
	ChainBps    uint16 `yaml:"chain_bps"`
	TreasuryBps uint16 `yaml:"treasury_bps"`
}

// TokenConfig points at the token gateway.
type TokenConfig struct {
	RPC     network.RPCConfig `yaml:"rpc,omitempty"`
	Custody account.Address   `yaml:"custody,omitempty"`
}

// EventsConfig selects the indexer sinks. Empty values disable a sink.
type EventsConfig struct {
	NATSURL     string `yaml:"nats_url,omitempty"`
	NATSSubject string `yaml:"nats_subject,omitempty"`
	RedisAddr   string `yaml:"redis_addr,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// DefaultDataDir returns ~/.receipt, or .receipt when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// DefaultConfig returns a configuration with every default filled in. The
// engine addresses are left zero and must be set before init.
func DefaultConfig() Config {
	p := revshare.DefaultParams(account.ZeroAddress, account.ZeroAddress)
	return Config{
		DataDir:    DefaultDataDir(),
		ListenAddr: ":9464",
		Network:    "regtest",
		LogLevel:   "info",
		Engine: EngineConfig{
			Shares: SharesConfig{
				OwnerBps:    p.Defaults.OwnerBps,
				ChainBps:    p.Defaults.ChainBps,
				TreasuryBps: p.Defaults.TreasuryBps,
			},
			FeeShares:     p.FeeShares,
			DecayFactor:   p.DecayFactor,
			MaxChainDepth: p.MaxChainDepth,
			CuratorPolicy: p.CuratorPolicy.String(),
		},
		Events: EventsConfig{
			NATSSubject: "receipt.events",
			RedisPrefix: "receipt",
		},
	}
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// DBPath returns the store file path inside dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, dbFileName)
}

// WalletPath returns the sealed payout wallet path inside dataDir.
func WalletPath(dataDir string) string {
	return filepath.Join(dataDir, walletFileName)
}

// LoadConfig reads path over DefaultConfig, so absent keys keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	header := []byte("# receiptctl configuration\n")
	return os.WriteFile(path, append(header, data...), 0600)
}

// Params builds the genesis engine parameters.
func (c Config) Params() (revshare.Params, error) {
	policy, err := revshare.ParseCuratorPolicy(c.Engine.CuratorPolicy)
	if err != nil {
		return revshare.Params{}, err
	}
	p := revshare.DefaultParams(c.Engine.Admin, c.Engine.Treasury)
	p.AgentFactory = c.Engine.AgentFactory
	p.CreditPool = c.Engine.CreditPool
	p.PaymentToken = c.Engine.PaymentToken
	p.Defaults = revshare.ShareConfig{
		OwnerBps:    c.Engine.Shares.OwnerBps,
		ChainBps:    c.Engine.Shares.ChainBps,
		TreasuryBps: c.Engine.Shares.TreasuryBps,
	}
	p.FeeShares = c.Engine.FeeShares
	p.DecayFactor = c.Engine.DecayFactor
	p.MaxChainDepth = c.Engine.MaxChainDepth
	p.CuratorPolicy = policy
	if err := p.Validate(); err != nil {
		return revshare.Params{}, err
	}
	return p, nil
}

// BundleSource returns the configured bundles keyed by ID.
func (c Config) BundleSource() revshare.BundleMap {
	m := make(revshare.BundleMap, len(c.Bundles))
	for _, b := range c.Bundles {
		m[b.ID] = b
	}
	return m
}
