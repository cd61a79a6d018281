// Package file persists the ledger snapshot as a JSON document on the local filesystem.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// DefaultPath is used when New is given an empty path.
var DefaultPath = filepath.Join(".timelock", "ledger.json")

// Store implements ports.LedgerStore on a single JSON file.
type Store struct {
	Path string
	mu   sync.Mutex
}

// New creates a Store writing to path.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

// Save writes the snapshot atomically: temp file in the same directory, fsync, rename.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure ledger directory: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, "tmp-ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file yields domain.ErrLedgerNotFound.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.Path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	snap := domain.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger file %s: %w", s.Path, err)
	}
	if snap.PartnerTasks == nil {
		snap.PartnerTasks = make(map[domain.PartnerID][]uint64)
	}
	if snap.Roles == nil {
		snap.Roles = make(map[domain.Role][]domain.Identity)
	}
	return snap, nil
}
