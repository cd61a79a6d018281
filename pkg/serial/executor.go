// Package serial runs engine operations as non-reentrant critical sections.
package serial

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/internal/logging"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
)

type heldKey struct {
	exec *Executor
}

// Executor serializes operations over a single shared resource.
// Mutations hold the exclusive lock (and the distributed lock, if configured);
// reads hold the shared lock.
type Executor struct {
	mu sync.RWMutex

	locker ports.DistributedLocker // Optional distributed locker
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Executor.
type Option func(*Executor)

// WithLocker enables distributed locking under key.
func WithLocker(locker ports.DistributedLocker, key string, ttl time.Duration) Option {
	return func(e *Executor) {
		e.locker = locker
		e.key = key
		e.ttl = ttl
	}
}

// WithLogger configures a logger for the Executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		key:    "ledger",
		ttl:    30 * time.Second,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Distributed reports whether a distributed locker is configured.
func (e *Executor) Distributed() bool {
	return e.locker != nil
}

// Held reports whether ctx belongs to an operation currently running on e.
func (e *Executor) Held(ctx context.Context) bool {
	return ctx.Value(heldKey{e}) != nil
}

// Run executes fn while holding the exclusive lock.
// A call made with a context derived from a running operation fails with
// domain.ErrReentrantCall instead of deadlocking.
func (e *Executor) Run(ctx context.Context, fn func(context.Context) error) error {
	if e.Held(ctx) {
		return domain.ErrReentrantCall
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, e.key, e.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", e.key,
					"err", err,
				)
			}
		}()
	}

	return fn(context.WithValue(ctx, heldKey{e}, struct{}{}))
}

// View executes fn while holding the shared lock. Inside a running operation
// it executes fn directly, since the caller already holds the exclusive lock.
func (e *Executor) View(ctx context.Context, fn func() error) error {
	if e.Held(ctx) {
		return fn()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn()
}
