package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Configuration struct {
	// Server config
	Server struct {
		Addr            string        `yaml:"addr"`
		UseSSL          bool          `yaml:"ssl"`
		CertFile        string        `yaml:"cert_file"`
		KeyFile         string        `yaml:"key_file"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	// where bridge state lives
	Storage struct {
		Backend   string `yaml:"backend"` // memory, bolt or redis
		BoltPath  string `yaml:"bolt_path"`
		RedisHost string `yaml:"redis_host"`
		RedisPort int    `yaml:"redis_port"`
		Namespace string `yaml:"namespace"`
	} `yaml:"storage"`
	Bridge struct {
		// deployer, becomes owner when the store is empty
		Owner         string   `yaml:"owner"`
		DisableLedger bool     `yaml:"disable_ledger"`
		RemoteChains  []string `yaml:"remote_chains"`
	} `yaml:"bridge"`
	Tokens struct {
		Host string `yaml:"host"` // memory or evm
	} `yaml:"tokens"`
	// EVM-related config
	EVM struct {
		ChainID        int64    `yaml:"chain_id"`
		RPCList        []string `yaml:"rpc_list"`
		PrivateKey     string   `yaml:"private_key"` // custody account
		FactoryAddress string   `yaml:"factory_address"`
		GasLimit       uint64   `yaml:"gas_limit"`
		DeployGasLimit uint64   `yaml:"deploy_gas_limit"`
		Confirmations  uint64   `yaml:"confirmations"`
		BlockBatch     uint64   `yaml:"block_batch"`
		// rescanned below the cursor on every pass, dedup makes it harmless
		SafetyWindow uint64        `yaml:"safety_window"`
		ScanInterval time.Duration `yaml:"scan_interval"`
	} `yaml:"EVM"`
	Events struct {
		Redis   bool   `yaml:"redis"`
		Channel string `yaml:"channel"`
	} `yaml:"events"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
		Dir   string `yaml:"dir"` // daily log files, stderr when empty
	} `yaml:"log"`
	Telemetry struct {
		Prometheus bool `yaml:"prometheus"`
	} `yaml:"telemetry"`
}

const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"

	TokenHostMemory = "memory"
	TokenHostEVM    = "evm"
)

// EnvPrefix prefixes every environment override, e.g. BRIDGE_EVM_PRIVATEKEY.
const EnvPrefix = "BRIDGE"

func defaults() *Configuration {
	cfg := &Configuration{}
	cfg.Server.Addr = ":8080"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Storage.Backend = BackendBolt
	cfg.Storage.BoltPath = "data/bridge.db"
	cfg.Storage.RedisHost = "localhost"
	cfg.Storage.RedisPort = 6379
	cfg.Storage.Namespace = "bridge"
	cfg.Tokens.Host = TokenHostMemory
	cfg.EVM.Confirmations = 3
	cfg.EVM.BlockBatch = 512
	cfg.EVM.SafetyWindow = 10
	cfg.EVM.ScanInterval = 10 * time.Second
	cfg.Log.Level = "info"
	return cfg
}

// Validate checks the settings the selected backends need.
func (c *Configuration) Validate() error {
	var errs []error

	if !common.IsHexAddress(c.Bridge.Owner) {
		errs = append(errs, fmt.Errorf("bridge.owner: %q is not an address", c.Bridge.Owner))
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendBolt:
		if c.Storage.BoltPath == "" {
			errs = append(errs, errors.New("storage.bolt_path is required for bolt"))
		}
	case BackendRedis:
		if c.Storage.RedisHost == "" || c.Storage.RedisPort == 0 {
			errs = append(errs, errors.New("storage.redis_host and storage.redis_port are required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}

	switch c.Tokens.Host {
	case TokenHostMemory:
	case TokenHostEVM:
		if c.EVM.ChainID <= 0 {
			errs = append(errs, errors.New("EVM.chain_id is required"))
		}
		if len(c.EVM.RPCList) == 0 {
			errs = append(errs, errors.New("EVM.rpc_list needs at least one endpoint"))
		}
		if c.EVM.PrivateKey == "" {
			errs = append(errs, errors.New("EVM.private_key is required"))
		}
		if !common.IsHexAddress(c.EVM.FactoryAddress) {
			errs = append(errs, fmt.Errorf("EVM.factory_address: %q is not an address", c.EVM.FactoryAddress))
		}
		if c.EVM.BlockBatch == 0 {
			errs = append(errs, errors.New("EVM.block_batch must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("tokens.host: unknown host %q", c.Tokens.Host))
	}

	// custody calls wait for mining inside a storage transaction, and the
	// memory backend blocks every reader for that long
	if c.Tokens.Host == TokenHostEVM && c.Storage.Backend == BackendMemory {
		errs = append(errs, errors.New("storage.backend memory cannot serve tokens.host evm"))
	}

	if c.Events.Redis && c.Storage.RedisHost == "" {
		errs = append(errs, errors.New("events.redis needs storage.redis_host"))
	}

	if c.Server.UseSSL && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		errs = append(errs, errors.New("server.cert_file and server.key_file are required with ssl"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// RedisAddr is the host:port of the redis server.
func (c *Configuration) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Storage.RedisHost, c.Storage.RedisPort)
}
