package timelock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/internal/ledger"
	"github.com/liqingnz/btc-timelock-contracts/internal/logging"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/events"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	"github.com/liqingnz/btc-timelock-contracts/pkg/serial"
)

// Engine is the high-level entry point for the library.
// The ledger operations are promoted from the embedded ledger.
type Engine struct {
	*ledger.Ledger

	store      ports.LedgerStore
	clock      ports.Clock
	locker     ports.DistributedLocker
	lockKey    string
	lockTTL    time.Duration
	hooks      domain.LifecycleHooks
	eventLog   *events.Log
	bufferSize int
	logger     *slog.Logger
}

// Collaborators are the external services the engine calls into.
type Collaborators struct {
	Oracle  ports.DepositOracle
	Factory ports.VaultFactory
	Vaults  ports.VaultResolver
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets where the ledger snapshot is persisted. Defaults to memory.
func WithStore(store ports.LedgerStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithClock overrides the time source used for timelock and deadline checks.
func WithClock(clock ports.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithDistributedLock serializes operations across replicas sharing a store.
// Each operation reloads the snapshot after acquiring the lock.
func WithDistributedLock(locker ports.DistributedLocker, key string, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockKey = key
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
// Calling it more than once chains the hooks in order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithEventBuffer sets the per-subscriber channel capacity of the event log.
func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		e.bufferSize = n
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an engine and restores its state from the configured store.
func New(ctx context.Context, cfg domain.Config, c Collaborators, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	execOpts := []serial.Option{serial.WithLogger(eng.logger)}
	if eng.locker != nil {
		execOpts = append(execOpts, serial.WithLocker(eng.locker, eng.lockKey, eng.lockTTL))
	}

	logOpts := []events.Option{events.WithLogger(eng.logger)}
	if eng.bufferSize > 0 {
		logOpts = append(logOpts, events.WithBuffer(eng.bufferSize))
	}
	eng.eventLog = events.NewLog(logOpts...)

	ledgerOpts := []ledger.Option{
		ledger.WithLogger(eng.logger),
		ledger.WithExecutor(serial.New(execOpts...)),
		ledger.WithEventLog(eng.eventLog),
		ledger.WithLifecycleHooks(eng.hooks),
	}
	if eng.store != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithStore(eng.store))
	}
	if eng.clock != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithClock(eng.clock))
	}

	l, err := ledger.New(ctx, cfg, ledger.Deps{
		Oracle:  c.Oracle,
		Factory: c.Factory,
		Vaults:  c.Vaults,
	}, ledgerOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing ledger: %w", err)
	}
	eng.Ledger = l
	return eng, nil
}

// Inspect returns a copy of the full ledger state.
func (e *Engine) Inspect(ctx context.Context) (*domain.Snapshot, error) {
	return e.Snapshot(ctx)
}
