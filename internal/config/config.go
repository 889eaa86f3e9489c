// Package config holds the node's tunable constants and loads them from
// a config file, environment variables, and CLI flags via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Channel names used to tag every P2P message (§6).
const (
	ChannelNode     = "node"
	ChannelChain    = "chain"
	ChannelSync     = "sync"
	ChannelTransact = "transact"
)

// RewardSentinel is the input address stamped on mining-reward
// transactions in place of a signed sender.
const RewardSentinel = "*--mining-reward--*"

// GenesisLastHash is the fixed previous-hash value of the genesis block.
const GenesisLastHash = "genesis_last_hash"

// Config is the full set of tunables a node is started with.
type Config struct {
	// Consensus constants.
	BlockHashLength     int     `mapstructure:"block_hash_length"`
	BlockTimestampLen   int     `mapstructure:"block_timestamp_length"`
	BlockMiningRateMs   int64   `mapstructure:"block_mining_rate_ms"`
	HeartbeatRateSec    int     `mapstructure:"heartbeat_rate_sec"`
	MiningReward        float64 `mapstructure:"mining_reward"`

	// Node wiring.
	NodeHost string   `mapstructure:"node_host"`
	NodePort int      `mapstructure:"node_port"`
	APIPort  int      `mapstructure:"api_port"`
	Peers    []string `mapstructure:"peers"`
}

// Defaults mirrors original_source/backend/src/config/settings.py.
func Defaults() *Config {
	return &Config{
		BlockHashLength:   64,
		BlockTimestampLen: 13,
		BlockMiningRateMs: 10 * 1000,
		HeartbeatRateSec:  5,
		MiningReward:      50,
		NodeHost:          "0.0.0.0",
		NodePort:          8080,
		APIPort:           5000,
	}
}

// Load reads configuration from (in increasing priority) defaults, an
// optional config.yaml in the current directory, environment variables
// prefixed CHAINNODE_, and whatever has already been bound onto v by the
// caller's cobra flags.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Defaults()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("chainnode")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("block_hash_length", cfg.BlockHashLength)
	v.SetDefault("block_timestamp_length", cfg.BlockTimestampLen)
	v.SetDefault("block_mining_rate_ms", cfg.BlockMiningRateMs)
	v.SetDefault("heartbeat_rate_sec", cfg.HeartbeatRateSec)
	v.SetDefault("mining_reward", cfg.MiningReward)
	v.SetDefault("node_host", cfg.NodeHost)
	v.SetDefault("node_port", cfg.NodePort)
	v.SetDefault("api_port", cfg.APIPort)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// ListenAddr is the host:port this node binds its P2P listener to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.NodeHost, c.NodePort)
}
