// Package cli wires configuration into a running engine for the timelockd commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	timelock "github.com/liqingnz/btc-timelock-contracts"
	"github.com/liqingnz/btc-timelock-contracts/internal/config"
	"github.com/liqingnz/btc-timelock-contracts/internal/logging"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/file"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/memory"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/redis"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/sqlite"
	"github.com/liqingnz/btc-timelock-contracts/pkg/observability"
	"github.com/liqingnz/btc-timelock-contracts/pkg/persistence/middleware"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
)

// Runtime is an engine together with the resources it owns.
type Runtime struct {
	Engine   *timelock.Engine
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Logger   *slog.Logger

	closers []func() error
}

// Close flushes pending ledger writes, then releases stores and clients in
// reverse order of creation.
func (r *Runtime) Close() error {
	var errs []error
	if r.Engine != nil {
		if err := r.Engine.Flush(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("flush ledger: %w", err))
		}
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewLogger creates the application logger from the log section.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, logging.Format(cfg.Format)), nil
}

// Build creates the adapters selected by cfg and the engine on top of them.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	}
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.Metrics = observability.NewMetrics(rt.Registry)

	var client *backend.Client
	if usesRedis(cfg) {
		client = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		rt.closers = append(rt.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
	}

	store, closeStore, err := OpenStore(cfg, client)
	if closeStore != nil {
		rt.closers = append(rt.closers, closeStore)
	}
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	collab, err := collaborators(cfg, client)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	opts := []timelock.Option{
		timelock.WithLogger(logger),
		timelock.WithStore(store),
		timelock.WithLifecycleHooks(rt.Metrics.Hooks()),
	}
	if cfg.Lock.Enabled {
		if client == nil {
			_ = rt.Close()
			return nil, errors.New("lock.enabled requires a redis connection")
		}
		opts = append(opts, timelock.WithDistributedLock(
			redis.NewLocker(client, redis.WithPrefix(cfg.Redis.Prefix)), cfg.Lock.Key, cfg.Lock.TTL,
		))
	}

	eng, err := timelock.New(ctx, cfg.Domain(), collab, opts...)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Engine = eng

	logger.Info("Engine ready",
		"store", cfg.Store.Backend,
		"oracle", cfg.Oracle.Backend,
		"vault", cfg.Vault.Backend,
		"lock", cfg.Lock.Enabled,
		"encrypted", cfg.Store.EncryptionKey != "",
	)
	if cfg.Vault.Backend == config.BackendMemory && cfg.Store.Backend != config.BackendMemory {
		logger.Warn("Memory vaults do not survive restarts; partners from a previous run cannot be credited")
	}
	return rt, nil
}

func usesRedis(cfg config.Config) bool {
	return cfg.Store.Backend == config.BackendRedis ||
		cfg.Oracle.Backend == config.BackendRedis ||
		cfg.Vault.Backend == config.BackendRedis ||
		cfg.Lock.Enabled
}

type pathOptions struct {
	Path string `mapstructure:"path"`
}

type redisStoreOptions struct {
	Prefix string `mapstructure:"prefix"`
}

// OpenStore opens the configured snapshot store, sealed when an encryption key is set.
// The closer may be nil. client is required for the redis backend.
func OpenStore(cfg config.Config, client *backend.Client) (ports.LedgerStore, func() error, error) {
	store, closer, err := openBackend(cfg, client)
	if err != nil || cfg.Store.EncryptionKey == "" {
		return store, closer, err
	}

	enc := middleware.EncryptionConfig{AllowPlaintext: cfg.Store.AllowPlaintext}
	if enc.ActiveKey, err = middleware.ParseKey(cfg.Store.EncryptionKey); err != nil {
		return nil, closer, fmt.Errorf("store.encryption_key: %w", err)
	}
	for _, k := range cfg.Store.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, closer, fmt.Errorf("store.fallback_keys: %w", err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	mw, err := middleware.NewEncryptionMiddleware(enc)
	if err != nil {
		return nil, closer, err
	}
	return middleware.Chain(store, mw), closer, nil
}

func openBackend(cfg config.Config, client *backend.Client) (ports.LedgerStore, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		return memory.NewStore(), nil, nil

	case config.BackendFile:
		opts := pathOptions{Path: cfg.Store.Path}
		if err := config.DecodeOptions(cfg.Store.Options, &opts); err != nil {
			return nil, nil, err
		}
		return file.New(opts.Path), nil, nil

	case config.BackendSQLite:
		opts := pathOptions{Path: cfg.Store.Path}
		if err := config.DecodeOptions(cfg.Store.Options, &opts); err != nil {
			return nil, nil, err
		}
		if strings.TrimSpace(opts.Path) == "" {
			opts.Path = "timelock.db"
		}
		store, err := sqlite.Open(opts.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil

	case config.BackendRedis:
		if client == nil {
			return nil, nil, errors.New("redis store requires a redis client")
		}
		opts := redisStoreOptions{Prefix: cfg.Redis.Prefix}
		if err := config.DecodeOptions(cfg.Store.Options, &opts); err != nil {
			return nil, nil, err
		}
		return redis.NewStore(client, redis.WithPrefix(opts.Prefix)), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func collaborators(cfg config.Config, client *backend.Client) (timelock.Collaborators, error) {
	var c timelock.Collaborators
	prefix := redis.WithPrefix(cfg.Redis.Prefix)

	switch cfg.Oracle.Backend {
	case config.BackendRedis:
		c.Oracle = redis.NewOracle(client, prefix)
	case config.BackendMemory, "":
		c.Oracle = memory.NewOracle()
	default:
		return c, fmt.Errorf("unknown oracle backend %q", cfg.Oracle.Backend)
	}

	switch cfg.Vault.Backend {
	case config.BackendRedis:
		v := redis.NewVaults(client, prefix)
		c.Factory, c.Vaults = v, v
	case config.BackendMemory, "":
		v := memory.NewVaults()
		c.Factory, c.Vaults = v, v
	default:
		return c, fmt.Errorf("unknown vault backend %q", cfg.Vault.Backend)
	}
	return c, nil
}
