// Package config loads timelockd settings from a YAML file and the environment.
// Environment variables take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/liqingnz/btc-timelock-contracts/internal/logging"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/persistence/middleware"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by the store, oracle and vault sections.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full daemon configuration.
type Config struct {
	EngineAddress string   `yaml:"engine_address" env:"TIMELOCK_ENGINE_ADDRESS"`
	Bridge        string   `yaml:"bridge" env:"TIMELOCK_BRIDGE"`
	PartnerBeacon string   `yaml:"partner_beacon" env:"TIMELOCK_PARTNER_BEACON"`
	Owner         string   `yaml:"owner" env:"TIMELOCK_OWNER"`
	Admins        []string `yaml:"admins" env:"TIMELOCK_ADMINS" envSeparator:","`
	Relayers      []string `yaml:"relayers" env:"TIMELOCK_RELAYERS" envSeparator:","`

	Log    LogConfig     `yaml:"log" envPrefix:"TIMELOCK_LOG_"`
	HTTP   HTTPConfig    `yaml:"http" envPrefix:"TIMELOCK_HTTP_"`
	MCP    MCPConfig     `yaml:"mcp" envPrefix:"TIMELOCK_MCP_"`
	Store  StoreConfig   `yaml:"store" envPrefix:"TIMELOCK_STORE_"`
	Oracle BackendConfig `yaml:"oracle" envPrefix:"TIMELOCK_ORACLE_"`
	Vault  BackendConfig `yaml:"vault" envPrefix:"TIMELOCK_VAULT_"`
	Redis  RedisConfig   `yaml:"redis" envPrefix:"TIMELOCK_REDIS_"`
	Lock   LockConfig    `yaml:"lock" envPrefix:"TIMELOCK_LOCK_"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// MCPConfig enables the MCP SSE listener next to the HTTP API.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

// StoreConfig selects the snapshot store. Options are backend specific.
type StoreConfig struct {
	Backend string         `yaml:"backend" env:"BACKEND"`
	Path    string         `yaml:"path" env:"PATH"`
	Options map[string]any `yaml:"options"`

	// EncryptionKey enables AES-256-GCM sealing of the stored snapshot (base64, 32 bytes).
	EncryptionKey  string   `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	FallbackKeys   []string `yaml:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`
	AllowPlaintext bool     `yaml:"allow_plaintext" env:"ALLOW_PLAINTEXT"`
}

type BackendConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Prefix   string `yaml:"prefix" env:"PREFIX"`
}

// LockConfig enables the Redis lock for running several replicas on one store.
type LockConfig struct {
	Enabled bool          `yaml:"enabled" env:"ENABLED"`
	Key     string        `yaml:"key" env:"KEY"`
	TTL     time.Duration `yaml:"ttl" env:"TTL"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		EngineAddress: "timelock-engine",
		Log:           LogConfig{Level: "info", Format: string(logging.FormatText)},
		HTTP:          HTTPConfig{Addr: ":8080"},
		MCP:           MCPConfig{Addr: ":8081"},
		Store:         StoreConfig{Backend: BackendMemory},
		Oracle:        BackendConfig{Backend: BackendMemory},
		Vault:         BackendConfig{Backend: BackendMemory},
		Redis:         RedisConfig{Addr: "localhost:6379", Prefix: "timelock:"},
		Lock:          LockConfig{Key: "ledger", TTL: 30 * time.Second},
	}
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads path (if not empty), applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks backend names and the log settings.
func (c Config) Validate() error {
	var errs []error
	check := func(section, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown backend %q (want one of %s)", section, value, strings.Join(allowed, ", ")))
	}
	check("store.backend", c.Store.Backend, BackendMemory, BackendFile, BackendRedis, BackendSQLite)
	check("oracle.backend", c.Oracle.Backend, BackendMemory, BackendRedis)
	check("vault.backend", c.Vault.Backend, BackendMemory, BackendRedis)

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if f := logging.Format(c.Log.Format); f != logging.FormatText && f != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Lock.Enabled && c.Lock.TTL <= 0 {
		errs = append(errs, errors.New("lock.ttl: must be positive when the lock is enabled"))
	}
	if c.Owner == "" {
		errs = append(errs, errors.New("owner: required"))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("store.encryption_key: %w", err))
		}
	}
	for i, k := range c.Store.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("store.fallback_keys[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Domain returns the engine configuration.
func (c Config) Domain() domain.Config {
	ids := func(in []string) []domain.Identity {
		out := make([]domain.Identity, 0, len(in))
		for _, s := range in {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, domain.Identity(s))
			}
		}
		return out
	}
	return domain.Config{
		EngineAddress: domain.Identity(c.EngineAddress),
		Bridge:        c.Bridge,
		PartnerBeacon: c.PartnerBeacon,
		Owner:         domain.Identity(c.Owner),
		Admins:        ids(c.Admins),
		Relayers:      ids(c.Relayers),
	}
}

// DecodeOptions decodes backend options into target, accepting string-typed numbers.
func DecodeOptions(options map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("decode store options: %w", err)
	}
	return nil
}
