// Package redis provides Redis-backed adapters: the ledger snapshot store,
// a distributed locker for multi-replica deployments, a deposit oracle fed by
// an external indexer, and partner vaults.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "timelock:"

// Store implements ports.LedgerStore on a single Redis string key.
type Store struct {
	client backend.UniversalClient
	prefix string
}

// Option configures the Redis adapters.
type Option func(*options)

type options struct {
	prefix string
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func apply(opts []Option) options {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewClient dials a Redis client from address, password and db.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

// NewStore creates a store on an existing client.
func NewStore(client backend.UniversalClient, opts ...Option) *Store {
	o := apply(opts)
	return &Store{client: client, prefix: o.prefix}
}

func (s *Store) key() string {
	return s.prefix + "ledger"
}

// Save replaces the stored snapshot.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}
	return nil
}

// Load returns the stored snapshot or domain.ErrLedgerNotFound.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot from redis: %w", err)
	}

	snap := domain.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.PartnerTasks == nil {
		snap.PartnerTasks = make(map[domain.PartnerID][]uint64)
	}
	if snap.Roles == nil {
		snap.Roles = make(map[domain.Role][]domain.Identity)
	}
	return snap, nil
}
