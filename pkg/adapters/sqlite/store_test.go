package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/sqlite"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	assert.Error(t, err)
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, _ := openTempStore(t)
	ports.RunLedgerStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	store, path := openTempStore(t)
	ctx := context.Background()

	snap := domain.NewSnapshot()
	snap.Partners = []domain.PartnerID{"p-1"}
	snap.Tasks = []domain.Task{{ID: 0, Partner: "p-1", State: domain.TaskStateCreated, Amount: ^uint64(0), BTCAddress: "a"}}
	snap.PartnerTasks["p-1"] = []uint64{0}
	require.NoError(t, store.Save(ctx, snap))
	require.NoError(t, store.Close())

	// Migrations are not applied twice.
	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	assert.Equal(t, ^uint64(0), loaded.Tasks[0].Amount, "full uint64 range survives")
	assert.Equal(t, []uint64{0}, loaded.PartnerTasks["p-1"])
}
