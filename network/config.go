package network

import (
	"fmt"
	"time"
)

// RPCConfig holds the connection parameters for a JSON-RPC endpoint.
type RPCConfig struct {
	URL      string        `yaml:"url" json:"url"`
	User     string        `yaml:"user" json:"user"`
	Password string        `yaml:"password" json:"password"`
	Network  string        `yaml:"network,omitempty" json:"network"`
	Timeout  time.Duration `yaml:"timeout,omitempty" json:"timeout"`
}

// NetworkPresets contains default node configurations for known networks.
// Mainnet is intentionally omitted to require explicit configuration.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "receipt", Password: "receipt"},
	"testnet": {URL: "http://localhost:18333", User: "receipt", Password: "receipt"},
}

// Environment variable prefixes understood by ResolveConfig.
const (
	EnvNode  = "RECEIPT_RPC"
	EnvToken = "RECEIPT_TOKEN_RPC"
)

// ResolveConfig merges configuration from three sources with decreasing priority:
//  1. explicit flags
//  2. environment variables <prefix>_URL, <prefix>_USER, <prefix>_PASS
//  3. network presets (node endpoints only, regtest/testnet)
func ResolveConfig(flags *RPCConfig, env map[string]string, prefix, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if prefix == EnvNode {
		if preset, ok := NetworkPresets[network]; ok {
			result = preset
			result.Network = network
		}
	}

	if env != nil {
		if v := env[prefix+"_URL"]; v != "" {
			result.URL = v
		}
		if v := env[prefix+"_USER"]; v != "" {
			result.User = v
		}
		if v := env[prefix+"_PASS"]; v != "" {
			result.Password = v
		}
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.User != "" {
			result.User = flags.User
		}
		if flags.Password != "" {
			result.Password = flags.Password
		}
		if flags.Timeout != 0 {
			result.Timeout = flags.Timeout
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("%w: %s on %s (set the flag, %s_URL, or config file)",
			ErrMissingConfig, prefix, network, prefix)
	}
	return &result, nil
}
