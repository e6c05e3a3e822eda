package nftexchange

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/kaifufi/nft-exchange-strategies-go/oracle"
)

// ChainID represents a blockchain chain ID
type ChainID int

const (
	ChainIDEthereumMainnet ChainID = 1     // Ethereum mainnet
	ChainIDLocal           ChainID = 31337 // local development node, addresses must be configured
)

// SupportedChainIDs lists all supported chain IDs
var SupportedChainIDs = []ChainID{ChainIDEthereumMainnet, ChainIDLocal}

// ContractAddresses holds contract addresses for each chain
type ContractAddresses struct {
	Exchange string
	WETH     string
}

// DefaultContractAddresses maps chain IDs to their contract addresses
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDEthereumMainnet: {
		Exchange: "0x0000000000E655fAe4d56241588680F86E3b2377",
		WETH:     "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	},
}

// Ledger backends
const (
	LedgerMemory = "memory"
	LedgerBadger = "badger"
	LedgerRedis  = "redis"
)

// LedgerConfig selects where multi-fill counters are kept
type LedgerConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"` // badger directory, empty for in-memory
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// Config holds configuration for creating an Engine
type Config struct {
	ChainID         ChainID `mapstructure:"chain_id"`
	ProtocolAddress string  `mapstructure:"protocol_address"`
	Owner           string  `mapstructure:"owner"`
	WETH            string  `mapstructure:"weth"`
	MaxLatency      uint64  `mapstructure:"max_latency"`
	LogLevel        string  `mapstructure:"log_level"`
	RPCURL          string  `mapstructure:"rpc_url"`
	// PriceFeeds maps collection addresses to aggregator addresses read through RPCURL
	PriceFeeds map[string]string `mapstructure:"price_feeds"`
	Ledger     LedgerConfig      `mapstructure:"ledger"`
}

// LoadConfig reads a YAML file at path (skipped when empty) and applies NFTX_
// environment overrides, e.g. NFTX_LEDGER_BACKEND=redis.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NFTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// every key needs a default for AutomaticEnv to reach it during Unmarshal
	v.SetDefault("chain_id", int(ChainIDEthereumMainnet))
	v.SetDefault("protocol_address", "")
	v.SetDefault("owner", "")
	v.SetDefault("weth", "")
	v.SetDefault("max_latency", oracle.MaximumLatencyLimit)
	v.SetDefault("log_level", "info")
	v.SetDefault("rpc_url", "")
	v.SetDefault("price_feeds", map[string]string{})
	v.SetDefault("ledger.backend", LedgerMemory)
	v.SetDefault("ledger.path", "")
	v.SetDefault("ledger.redis_addr", "")
	v.SetDefault("ledger.redis_prefix", "nftx:")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills chain addresses and ledger settings left empty
func (c *Config) applyDefaults() {
	contracts := DefaultContractAddresses[c.ChainID]
	if c.ProtocolAddress == "" {
		c.ProtocolAddress = contracts.Exchange
	}
	if c.WETH == "" {
		c.WETH = contracts.WETH
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = LedgerMemory
	}
	if c.Ledger.RedisPrefix == "" {
		c.Ledger.RedisPrefix = "nftx:"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration after defaults are applied
func (c *Config) Validate() error {
	isSupported := false
	for _, supportedID := range SupportedChainIDs {
		if c.ChainID == supportedID {
			isSupported = true
			break
		}
	}
	if !isSupported {
		return &InvalidParamError{Message: fmt.Sprintf("chain_id must be one of %v", SupportedChainIDs)}
	}

	addresses := []struct {
		name, value string
	}{
		{"protocol_address", c.ProtocolAddress},
		{"owner", c.Owner},
		{"weth", c.WETH},
	}
	for _, a := range addresses {
		if !common.IsHexAddress(a.value) {
			return &InvalidParamError{Message: fmt.Sprintf("%s must be a hex address, got: %q", a.name, a.value)}
		}
	}

	if c.MaxLatency > oracle.MaximumLatencyLimit {
		return &InvalidParamError{Message: fmt.Sprintf("max_latency must be at most %d, got: %d", oracle.MaximumLatencyLimit, c.MaxLatency)}
	}

	for collection, feed := range c.PriceFeeds {
		if !common.IsHexAddress(collection) || !common.IsHexAddress(feed) {
			return &InvalidParamError{Message: fmt.Sprintf("invalid price feed entry %s: %s", collection, feed)}
		}
	}
	if len(c.PriceFeeds) > 0 && c.RPCURL == "" {
		return &InvalidParamError{Message: "rpc_url is required when price_feeds are configured"}
	}

	switch c.Ledger.Backend {
	case LedgerMemory, LedgerBadger:
	case LedgerRedis:
		if c.Ledger.RedisAddr == "" {
			return &InvalidParamError{Message: "ledger.redis_addr is required for the redis backend"}
		}
	default:
		return &InvalidParamError{Message: fmt.Sprintf("unknown ledger backend: %q", c.Ledger.Backend)}
	}
	return nil
}
