package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  addr: ":9090"
  shutdown_timeout: 3s
storage:
  backend: redis
  redis_host: redis.local
  redis_port: 6380
bridge:
  owner: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
  remote_chains: [eth, bnb]
tokens:
  host: evm
EVM:
  chain_id: 5
  rpc_list:
    - https://rpc-1.example
    - https://rpc-2.example
  private_key: "abcd"
  factory_address: "0x0000000000000000000000000000000000000f00"
  scan_interval: 30s
log:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, sampleConfig))
		require.NoError(t, err)

		require.Equal(t, ":9090", cfg.Server.Addr)
		require.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
		require.Equal(t, "redis.local:6380", cfg.RedisAddr())
		require.Equal(t, "bridge", cfg.Storage.Namespace)
		require.Equal(t, []string{"eth", "bnb"}, cfg.Bridge.RemoteChains)
		require.Equal(t, []string{"https://rpc-1.example", "https://rpc-2.example"}, cfg.EVM.RPCList)
		require.Equal(t, 30*time.Second, cfg.EVM.ScanInterval)
		// untouched defaults
		require.Equal(t, uint64(512), cfg.EVM.BlockBatch)
		require.Equal(t, uint64(3), cfg.EVM.Confirmations)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("BRIDGE_EVM_PRIVATEKEY", "beef")
		t.Setenv("BRIDGE_STORAGE_BACKEND", "bolt")
		t.Setenv("BRIDGE_EVM_RPCLIST", "https://a.example,https://b.example")

		cfg, err := Load(writeConfig(t, sampleConfig))
		require.NoError(t, err)
		require.Equal(t, "beef", cfg.EVM.PrivateKey)
		require.Equal(t, BackendBolt, cfg.Storage.Backend)
		require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.EVM.RPCList)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("broken yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unclosed"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Configuration {
		cfg := defaults()
		cfg.Bridge.Owner = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
		return cfg
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Configuration){
		"owner":          func(c *Configuration) { c.Bridge.Owner = "nobody" },
		"backend":        func(c *Configuration) { c.Storage.Backend = "postgres" },
		"bolt path":      func(c *Configuration) { c.Storage.BoltPath = "" },
		"token host":     func(c *Configuration) { c.Tokens.Host = "solana" },
		"evm settings":   func(c *Configuration) { c.Tokens.Host = TokenHostEVM },
		"tls files":      func(c *Configuration) { c.Server.UseSSL = true },
		"log level":      func(c *Configuration) { c.Log.Level = "loud" },
		"redis settings": func(c *Configuration) { c.Storage.Backend = BackendRedis; c.Storage.RedisPort = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	t.Run("memory storage with evm host", func(t *testing.T) {
		cfg := valid()
		cfg.Tokens.Host = TokenHostEVM
		cfg.EVM.ChainID = 5
		cfg.EVM.RPCList = []string{"https://rpc.example"}
		cfg.EVM.PrivateKey = "abcd"
		cfg.EVM.FactoryAddress = "0x0000000000000000000000000000000000000f00"
		require.NoError(t, cfg.Validate())

		cfg.Storage.Backend = BackendMemory
		require.ErrorContains(t, cfg.Validate(), "cannot serve tokens.host evm")
	})
}
