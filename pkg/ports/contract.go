package ports

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLedgerStoreContract runs a suite of tests to verify that a LedgerStore implementation
// adheres to the defined interface contract. The store must be empty when passed in.
func RunLedgerStoreContract(t *testing.T, store LedgerStore) {
	ctx := context.Background()
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Load Empty", func(t *testing.T) {
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrLedgerNotFound)
	})

	t.Run("Save and Load", func(t *testing.T) {
		hash, err := domain.ParseTxHash("0xab" + strings.Repeat("00", 31))
		require.NoError(t, err)

		snap := domain.NewSnapshot()
		snap.Partners = []domain.PartnerID{"p-1", "p-2"}
		snap.Tasks = []domain.Task{
			{
				ID:              0,
				Partner:         "p-1",
				State:           domain.TaskStateFulfilled,
				TimelockEndTime: base.Add(time.Hour),
				Deadline:        base.Add(2 * time.Hour),
				Amount:          500,
				BTCAddress:      "bc1qaddr",
				TxHash:          hash,
				TxOut:           3,
				WitnessScript:   domain.HexBytes{0xde, 0xad},
			},
			{
				ID:              1,
				Partner:         "p-2",
				State:           domain.TaskStateCreated,
				TimelockEndTime: base.Add(time.Hour),
				Deadline:        base.Add(time.Minute),
				Amount:          7,
				BTCAddress:      "tb1q",
			},
		}
		snap.PartnerTasks["p-1"] = []uint64{0}
		snap.PartnerTasks["p-2"] = []uint64{1}
		snap.Roles[domain.RoleAdmin] = []domain.Identity{"alice"}
		snap.Roles[domain.RoleRelayer] = []domain.Identity{"relay-1", "relay-2"}

		require.NoError(t, store.Save(ctx, snap), "Save should not return error")

		loaded, err := store.Load(ctx)
		require.NoError(t, err, "Load should not return error")

		assert.Equal(t, snap.Partners, loaded.Partners)
		require.Len(t, loaded.Tasks, 2)
		for i := range snap.Tasks {
			want, got := snap.Tasks[i], loaded.Tasks[i]
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Partner, got.Partner)
			assert.Equal(t, want.State, got.State)
			assert.True(t, want.TimelockEndTime.Equal(got.TimelockEndTime), "timelock end time")
			assert.True(t, want.Deadline.Equal(got.Deadline), "deadline")
			assert.Equal(t, want.Amount, got.Amount)
			assert.Equal(t, want.BTCAddress, got.BTCAddress)
			assert.Equal(t, want.TxHash, got.TxHash)
			assert.Equal(t, want.TxOut, got.TxOut)
			assert.Equal(t, []byte(want.WitnessScript), []byte(got.WitnessScript))
		}
		assert.Equal(t, []uint64{0}, loaded.PartnerTasks["p-1"])
		assert.Equal(t, []uint64{1}, loaded.PartnerTasks["p-2"])
		assert.ElementsMatch(t, []domain.Identity{"relay-1", "relay-2"}, loaded.Roles[domain.RoleRelayer])
		assert.ElementsMatch(t, []domain.Identity{"alice"}, loaded.Roles[domain.RoleAdmin])
	})

	t.Run("Save Replaces", func(t *testing.T) {
		snap := domain.NewSnapshot()
		snap.Partners = []domain.PartnerID{"p-3"}

		require.NoError(t, store.Save(ctx, snap))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.PartnerID{"p-3"}, loaded.Partners)
		assert.Empty(t, loaded.Tasks)
		assert.Empty(t, loaded.PartnerTasks["p-1"], "index of a dropped partner should not survive")
	})

	t.Run("Isolation", func(t *testing.T) {
		snap := domain.NewSnapshot()
		snap.Partners = []domain.PartnerID{"p-4"}
		require.NoError(t, store.Save(ctx, snap))

		// Mutating the caller's copy must not leak into the store.
		snap.Partners[0] = "mutated"

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.PartnerID("p-4"), loaded.Partners[0])
	})

	t.Run("Time Precision", func(t *testing.T) {
		timelock := base.Add(100*time.Second + 900*time.Microsecond + 7*time.Nanosecond)
		deadline := base.Add(50*time.Second + 999_999*time.Nanosecond)

		snap := domain.NewSnapshot()
		snap.Partners = []domain.PartnerID{"p-5"}
		snap.Tasks = []domain.Task{{
			ID:              0,
			Partner:         "p-5",
			State:           domain.TaskStateFulfilled,
			TimelockEndTime: timelock,
			Deadline:        deadline,
			Amount:          1,
			BTCAddress:      "bc1qprecise",
		}}
		require.NoError(t, store.Save(ctx, snap))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, loaded.Tasks, 1)
		assert.True(t, timelock.Equal(loaded.Tasks[0].TimelockEndTime),
			"timelock end time: want %s, got %s", timelock.Format(time.RFC3339Nano), loaded.Tasks[0].TimelockEndTime.Format(time.RFC3339Nano))
		assert.True(t, deadline.Equal(loaded.Tasks[0].Deadline),
			"deadline: want %s, got %s", deadline.Format(time.RFC3339Nano), loaded.Tasks[0].Deadline.Format(time.RFC3339Nano))
	})

	t.Run("Sealed Payload", func(t *testing.T) {
		snap := domain.NewSnapshot()
		snap.Sealed = []byte{0x00, 0x01, 0xfe}
		require.NoError(t, store.Save(ctx, snap))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x01, 0xfe}, loaded.Sealed)

		require.NoError(t, store.Save(ctx, domain.NewSnapshot()))
		loaded, err = store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, loaded.Sealed)
	})
}
