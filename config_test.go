package nftexchange

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/nft-exchange-strategies-go/oracle"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileWithChainDefaults(t *testing.T) {
	path := writeConfig(t, `
chain_id: 1
owner: "0x00000000000000000000000000000000000000aa"
max_latency: 900
log_level: debug
ledger:
  backend: badger
  path: /var/lib/nftx
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ChainIDEthereumMainnet, cfg.ChainID)
	assert.Equal(t, DefaultContractAddresses[ChainIDEthereumMainnet].Exchange, cfg.ProtocolAddress)
	assert.Equal(t, DefaultContractAddresses[ChainIDEthereumMainnet].WETH, cfg.WETH)
	assert.Equal(t, uint64(900), cfg.MaxLatency)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, LedgerBadger, cfg.Ledger.Backend)
	assert.Equal(t, "/var/lib/nftx", cfg.Ledger.Path)
	assert.Equal(t, "nftx:", cfg.Ledger.RedisPrefix)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("NFTX_OWNER", "0x00000000000000000000000000000000000000bb")
	t.Setenv("NFTX_LEDGER_BACKEND", "redis")
	t.Setenv("NFTX_LEDGER_REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", cfg.Owner)
	assert.Equal(t, LedgerRedis, cfg.Ledger.Backend)
	assert.Equal(t, "localhost:6379", cfg.Ledger.RedisAddr)
	assert.Equal(t, oracle.MaximumLatencyLimit, cfg.MaxLatency)
}

func TestLoadConfig_PriceFeeds(t *testing.T) {
	path := writeConfig(t, `
owner: "0x00000000000000000000000000000000000000aa"
rpc_url: http://localhost:8545
price_feeds:
  "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D": "0x352f2Bc3039429fC2fe62004a1575aE74001CfcE"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.PriceFeeds, 1)
	for collection, feed := range cfg.PriceFeeds {
		// viper lower-cases keys
		assert.Equal(t, "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d", collection)
		assert.Equal(t, "0x352f2Bc3039429fC2fe62004a1575aE74001CfcE", feed)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Config{ChainID: ChainIDEthereumMainnet, Owner: testOwner.Hex(), MaxLatency: 3600}
		cfg.applyDefaults()
		return cfg
	}

	cases := map[string]func(c *Config){
		"unsupported chain":  func(c *Config) { c.ChainID = 137 },
		"bad owner":          func(c *Config) { c.Owner = "owner" },
		"latency above cap":  func(c *Config) { c.MaxLatency = 3601 },
		"unknown ledger":     func(c *Config) { c.Ledger.Backend = "postgres" },
		"redis without addr": func(c *Config) { c.Ledger.Backend = LedgerRedis },
		"feeds without rpc": func(c *Config) {
			c.PriceFeeds = map[string]string{testCollection.Hex(): testOwner.Hex()}
		},
		"malformed feed": func(c *Config) {
			c.RPCURL = "http://localhost:8545"
			c.PriceFeeds = map[string]string{testCollection.Hex(): "feed"}
		},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			err := cfg.Validate()
			var paramErr *InvalidParamError
			require.ErrorAs(t, err, &paramErr)
			assert.ErrorIs(t, err, ErrInvalidParam)
		})
	}
}

func TestConfig_LocalChainNeedsAddresses(t *testing.T) {
	cfg := Config{ChainID: ChainIDLocal, Owner: testOwner.Hex()}
	cfg.applyDefaults()
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidParam)

	cfg.ProtocolAddress = testProtocol.Hex()
	cfg.WETH = testWETH.Hex()
	assert.NoError(t, cfg.Validate())
}
