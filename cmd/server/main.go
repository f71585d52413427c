package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"

	"gotokenbridge/addressbook"
	"gotokenbridge/bridge"
	"gotokenbridge/config"
	"gotokenbridge/eventbus"
	"gotokenbridge/evm"
	"gotokenbridge/identity"
	"gotokenbridge/ingress"
	"gotokenbridge/storage"
	"gotokenbridge/telemetry"
	"gotokenbridge/token"
	"gotokenbridge/workers"
	"gotokenbridge/workers/handlers"
)

const serviceName = "tokenbridge"

type tokenHost interface {
	bridge.TokenHost
	handlers.Balances
}

func main() {
	configPath := flag.String("config", "config.yml", "path to the yaml configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// reading config error is fatal
		fmt.Println(err)
		os.Exit(2)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Error("bridge stopped with error", "err", err)
		closeLog()
		os.Exit(1)
	}
}

func newLogger(cfg *config.Configuration) (hclog.Logger, func(), error) {
	var (
		output io.Writer = os.Stderr
		closer           = func() {}
	)

	if cfg.Log.Dir != "" {
		if err := os.MkdirAll(cfg.Log.Dir, 0o755); err != nil {
			return nil, nil, err
		}
		name := filepath.Join(cfg.Log.Dir, fmt.Sprintf("log_%s.txt", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening log file for writing: %w", err)
		}
		output = f
		closer = func() { f.Close() }
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       serviceName,
		Level:      hclog.LevelFromString(strings.ToLower(cfg.Log.Level)),
		Output:     output,
		JSONFormat: cfg.Log.JSON,
	})
	return logger, closer, nil
}

func openStore(cfg *config.Configuration, logger hclog.Logger) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, state is lost on restart")
		return storage.NewMemory(), nil
	case config.BackendBolt:
		return storage.OpenBolt(cfg.Storage.BoltPath)
	case config.BackendRedis:
		store := storage.NewRedis(storage.NewRedisPool(cfg.RedisAddr()), cfg.Storage.Namespace, logger)
		// without persistence do not continue
		if err := store.Ping(); err != nil {
			store.Close()
			return nil, fmt.Errorf("cannot reach redis at %s: %w", cfg.RedisAddr(), err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func run(cfg *config.Configuration, logger hclog.Logger) error {
	logger.Info("starting token bridge", "storage", cfg.Storage.Backend, "tokens", cfg.Tokens.Host,
		"ledger", !cfg.Bridge.DisableLedger)

	if cfg.Telemetry.Prometheus {
		if err := telemetry.Setup(serviceName); err != nil {
			return fmt.Errorf("cannot set up telemetry: %w", err)
		}
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	publishers := eventbus.Fanout{eventbus.NewLog(logger)}
	if cfg.Events.Redis {
		pool := storage.NewRedisPool(cfg.RedisAddr())
		defer pool.Close()
		publishers = append(publishers, eventbus.NewRedis(pool, cfg.Events.Channel))
	}

	var (
		host      tokenHost
		custodian common.Address
		client    *evm.Client
	)
	switch cfg.Tokens.Host {
	case config.TokenHostEVM:
		client, err = evm.NewClient(evm.Config{
			ChainID:        cfg.EVM.ChainID,
			RPCList:        cfg.EVM.RPCList,
			PrivateKey:     cfg.EVM.PrivateKey,
			GasLimit:       cfg.EVM.GasLimit,
			DeployGasLimit: cfg.EVM.DeployGasLimit,
		}, logger)
		if err != nil {
			return err
		}
		custodian = client.Custodian()
		host = evm.NewHost(client, common.HexToAddress(cfg.EVM.FactoryAddress))
	default:
		// the deployer doubles as custodian of the in-process chain
		custodian = common.HexToAddress(cfg.Bridge.Owner)
		host = token.NewChain(custodian, logger)
	}

	b, err := bridge.New(store, host, publishers, identity.Trusted(common.HexToAddress(cfg.Bridge.Owner)),
		bridge.Options{DisableLedger: cfg.Bridge.DisableLedger}, logger)
	if err != nil {
		return err
	}
	if chain, ok := host.(*token.Chain); ok {
		chain.SetReceiver(custodian, b)
	}

	book := addressbook.New(store, cfg.Bridge.RemoteChains, logger)
	ingressStore := ingress.NewStore(store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if client != nil {
		scanner := workers.NewScanEVM(workers.ScanConfig{
			ChainID:       cfg.EVM.ChainID,
			Custodian:     custodian,
			Confirmations: cfg.EVM.Confirmations,
			BlockBatch:    cfg.EVM.BlockBatch,
			SafetyWindow:  cfg.EVM.SafetyWindow,
			Interval:      cfg.EVM.ScanInterval,
		}, client, b, book, ingressStore, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			scanner.Run(ctx)
		}()
	}

	h := handlers.New(b, book, identity.NewNonceGuard(store), ingressStore, host, custodian, logger)

	var metrics http.Handler
	if cfg.Telemetry.Prometheus {
		metrics = telemetry.Handler()
	}

	// HTTP serves as the main worker, its exit stops everything else
	err = workers.ServeHTTP(ctx, workers.HTTPConfig{
		Addr:            cfg.Server.Addr,
		UseSSL:          cfg.Server.UseSSL,
		CertFile:        cfg.Server.CertFile,
		KeyFile:         cfg.Server.KeyFile,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, workers.NewRouter(h, metrics, logger), logger)

	stop()
	wg.Wait()
	return err
}
