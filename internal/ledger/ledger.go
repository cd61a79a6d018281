// Package ledger implements the Task Ledger state machine and the partner operations around it.
//
// Every mutation runs as one serialized, non-reentrant unit of work:
// authorize, validate, stage the change, persist it, perform the external
// vault call, and only then publish events. A failure at any step reverts
// the staged change before returning.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/liqingnz/btc-timelock-contracts/internal/guard"
	"github.com/liqingnz/btc-timelock-contracts/internal/logging"
	"github.com/liqingnz/btc-timelock-contracts/internal/registry"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/memory"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/events"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	"github.com/liqingnz/btc-timelock-contracts/pkg/serial"
)

// Deps are the external collaborators the ledger cannot run without.
type Deps struct {
	Oracle  ports.DepositOracle
	Factory ports.VaultFactory
	Vaults  ports.VaultResolver
}

// Ledger is the Task Ledger and Partner Registry engine.
type Ledger struct {
	cfg domain.Config

	guard    *guard.Guard
	registry *registry.Registry
	tasks    []domain.Task

	oracle  ports.DepositOracle
	factory ports.VaultFactory
	vaults  ports.VaultResolver

	store  ports.LedgerStore
	clock  ports.Clock
	exec   *serial.Executor
	events *events.Log
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	// unsynced holds tasks reverted in memory whose compensating write failed,
	// so the store may still hold their staged state.
	unsynced map[uint64]revert
}

type revert struct {
	staged domain.TaskState
	prev   domain.Task
}

// Option configures the Ledger.
type Option func(*Ledger)

// WithStore sets the snapshot store. Defaults to an in-memory store.
func WithStore(store ports.LedgerStore) Option {
	return func(l *Ledger) {
		l.store = store
	}
}

// WithClock sets the time source. Defaults to the system clock.
func WithClock(clock ports.Clock) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithExecutor sets the critical-section executor, e.g. one backed by a distributed lock.
func WithExecutor(exec *serial.Executor) Option {
	return func(l *Ledger) {
		l.exec = exec
	}
}

// WithEventLog sets the log events are appended to.
func WithEventLog(log *events.Log) Option {
	return func(l *Ledger) {
		l.events = log
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(l *Ledger) {
		l.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New creates a ledger and restores it from the store.
// An empty store yields a genesis ledger whose roles are seeded from cfg.
func New(ctx context.Context, cfg domain.Config, deps Deps, opts ...Option) (*Ledger, error) {
	if deps.Oracle == nil || deps.Factory == nil || deps.Vaults == nil {
		return nil, errors.New("ledger: oracle, vault factory and vault resolver are required")
	}

	l := &Ledger{
		cfg:      cfg,
		guard:    guard.New(),
		registry: registry.New(),
		tasks:    []domain.Task{},
		unsynced: make(map[uint64]revert),
		oracle:   deps.Oracle,
		factory:  deps.Factory,
		vaults:   deps.Vaults,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.store == nil {
		l.store = memory.NewStore()
	}
	if l.clock == nil {
		l.clock = ports.SystemClock{}
	}
	if l.exec == nil {
		l.exec = serial.New(serial.WithLogger(l.logger))
	}
	if l.events == nil {
		l.events = events.NewLog(events.WithLogger(l.logger))
	}

	err := l.exec.Run(ctx, func(ctx context.Context) error {
		snap, err := l.store.Load(ctx)
		if err == nil {
			l.restore(snap)
			return nil
		}
		if !errors.Is(err, domain.ErrLedgerNotFound) {
			return fmt.Errorf("load ledger: %w", err)
		}
		return l.genesis(ctx)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) genesis(ctx context.Context) error {
	if l.cfg.Owner != "" {
		l.guard.Grant(domain.RoleDefaultAdmin, l.cfg.Owner)
		l.guard.Grant(domain.RoleAdmin, l.cfg.Owner)
	}
	for _, id := range l.cfg.Admins {
		l.guard.Grant(domain.RoleAdmin, id)
	}
	for _, id := range l.cfg.Relayers {
		l.guard.Grant(domain.RoleRelayer, id)
	}
	if err := l.persist(ctx); err != nil {
		return fmt.Errorf("persist genesis ledger: %w", err)
	}
	l.logger.Info("Initialized genesis ledger", "owner", l.cfg.Owner, "admins", len(l.cfg.Admins), "relayers", len(l.cfg.Relayers))
	return nil
}

// Config returns the immutable engine configuration.
func (l *Ledger) Config() domain.Config {
	return l.cfg
}

// Events returns the event log.
func (l *Ledger) Events() *events.Log {
	return l.events
}

// snapshot captures the full in-memory state. The caller holds the lock.
func (l *Ledger) snapshot() *domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.Tasks = make([]domain.Task, len(l.tasks))
	for i, t := range l.tasks {
		snap.Tasks[i] = t.Clone()
	}
	l.registry.Export(snap)
	snap.Roles = l.guard.Export()
	return snap
}

func (l *Ledger) restore(snap *domain.Snapshot) {
	snap = snap.Clone()
	l.tasks = snap.Tasks
	if l.tasks == nil {
		l.tasks = []domain.Task{}
	}
	l.registry.Restore(snap)
	l.guard.Restore(snap.Roles)
}

func (l *Ledger) persist(ctx context.Context) error {
	return l.store.Save(ctx, l.snapshot())
}

// compensate re-persists the reverted state after a failed external call.
// If that write fails too, the revert is remembered and written before the
// next operation runs.
func (l *Ledger) compensate(ctx context.Context, op string, staged domain.TaskState, prev domain.Task) {
	if err := l.persist(context.WithoutCancel(ctx)); err != nil {
		l.unsynced[prev.ID] = revert{staged: staged, prev: prev.Clone()}
		l.logger.Error("Failed to persist reverted ledger state; operations are refused until it is written",
			"op", op,
			"task_id", prev.ID,
			"err", err,
		)
	}
}

// resync writes pending reverts. The caller holds the exclusive lock.
func (l *Ledger) resync(ctx context.Context) error {
	if len(l.unsynced) == 0 {
		return nil
	}
	if l.exec.Distributed() {
		if err := l.reload(ctx); err != nil {
			return err
		}
	}
	if err := l.persist(ctx); err != nil {
		return fmt.Errorf("persist reverted ledger state: %w", err)
	}
	l.logger.Info("Persisted reverted ledger state", "tasks", len(l.unsynced))
	clear(l.unsynced)
	return nil
}

// Flush writes any reverted state a failed compensating write left out of the store.
// Call it before shutdown so a restart does not load a staged change.
func (l *Ledger) Flush(ctx context.Context) error {
	return l.exec.Run(ctx, l.resync)
}

// mutate runs fn as a critical section and publishes the events it returns.
func (l *Ledger) mutate(ctx context.Context, op string, fn func(context.Context) ([]domain.Event, error)) error {
	var emitted []domain.Event
	err := l.exec.Run(ctx, func(ctx context.Context) error {
		if err := l.resync(ctx); err != nil {
			return err
		}
		if l.exec.Distributed() {
			if err := l.reload(ctx); err != nil {
				return err
			}
		}
		evs, err := fn(ctx)
		if err != nil {
			return err
		}
		emitted = l.publish(evs)
		return nil
	})
	if err != nil {
		l.reject(ctx, op, err)
		return err
	}
	l.notify(ctx, op, emitted)
	return nil
}

// view runs a read. With a distributed lock the state is reloaded first, so
// reads observe writes made by other replicas.
func (l *Ledger) view(ctx context.Context, fn func() error) error {
	if !l.exec.Distributed() || l.exec.Held(ctx) {
		return l.exec.View(ctx, fn)
	}
	return l.exec.Run(ctx, func(ctx context.Context) error {
		if err := l.reload(ctx); err != nil {
			return err
		}
		return fn()
	})
}

// reload refreshes state written by other replicas. Pending reverts are
// reapplied to tasks the store still holds in their staged state.
func (l *Ledger) reload(ctx context.Context) error {
	snap, err := l.store.Load(ctx)
	if errors.Is(err, domain.ErrLedgerNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	l.restore(snap)
	for id, r := range l.unsynced {
		if id < uint64(len(l.tasks)) && l.tasks[id].State == r.staged {
			l.tasks[id] = r.prev.Clone()
		}
	}
	return nil
}

func (l *Ledger) publish(evs []domain.Event) []domain.Event {
	now := l.clock.Now()
	out := make([]domain.Event, 0, len(evs))
	for _, e := range evs {
		e.Timestamp = now
		out = append(out, l.events.Append(e))
	}
	return out
}

func (l *Ledger) notify(ctx context.Context, op string, evs []domain.Event) {
	for i := range evs {
		e := &evs[i]
		l.logger.Info("Ledger event", "op", op, "seq", e.Seq, "type", e.Type, "partner", e.Partner, "amount", e.Amount)

		var hook func(context.Context, *domain.Event)
		switch e.Type {
		case domain.EventPartnerCreated:
			hook = l.hooks.OnPartnerCreated
		case domain.EventPartnerRemoved:
			hook = l.hooks.OnPartnerRemoved
		case domain.EventTaskCreated:
			hook = l.hooks.OnTaskCreated
		case domain.EventFundsReceived:
			hook = l.hooks.OnFundsReceived
		case domain.EventBurned:
			hook = l.hooks.OnBurned
		}
		if hook != nil {
			hook(ctx, e)
		}
	}
}

func (l *Ledger) reject(ctx context.Context, op string, err error) {
	l.logger.Warn("Ledger operation rejected", "op", op, "reason", domain.Reason(err), "err", err)
	if l.hooks.OnRejected != nil {
		l.hooks.OnRejected(ctx, op, err)
	}
}

// Snapshot returns a copy of the current ledger state.
func (l *Ledger) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := l.view(ctx, func() error {
		snap = l.snapshot()
		return nil
	})
	return snap, err
}

func ptr[T any](v T) *T {
	return &v
}
