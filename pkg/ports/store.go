package ports

import (
	"context"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// LedgerStore persists the ledger snapshot.
// Save replaces the previously stored snapshot as a whole.
type LedgerStore interface {
	// Save persists the snapshot.
	Save(ctx context.Context, snapshot *domain.Snapshot) error

	// Load retrieves the last saved snapshot.
	// Returns domain.ErrLedgerNotFound if nothing was saved yet.
	Load(ctx context.Context) (*domain.Snapshot, error)
}
