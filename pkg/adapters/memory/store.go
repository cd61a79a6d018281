package memory

import (
	"context"
	"sync"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// Store implements ports.LedgerStore in memory.
// Safe for concurrent use.
type Store struct {
	snap *domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Save persists a copy of the snapshot.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := snapshot.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = copied
	return nil
}

// Load returns a copy of the last saved snapshot.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, domain.ErrLedgerNotFound
	}
	// Copy on read so the caller can't mutate store state through the pointer
	return s.snap.Clone(), nil
}
