package registry_test

import (
	"testing"

	"github.com/liqingnz/btc-timelock-contracts/internal/registry"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddIsSetUnion(t *testing.T) {
	r := registry.New()

	assert.True(t, r.Add("a"))
	assert.False(t, r.Add("a"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveSwapsWithLast(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Add("b")
	r.Add("c")

	require.True(t, r.Remove("a"))

	// "c" moved into the slot "a" vacated.
	first, err := r.At(0)
	require.NoError(t, err)
	assert.Equal(t, domain.PartnerID("c"), first)

	second, err := r.At(1)
	require.NoError(t, err)
	assert.Equal(t, domain.PartnerID("b"), second)

	_, err = r.At(2)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	assert.False(t, r.Contains("a"))
	assert.True(t, r.Contains("c"))
	assert.False(t, r.Remove("a"))
}

func TestRegistry_RemoveLast(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Add("b")

	require.True(t, r.Remove("b"))
	assert.Equal(t, []domain.PartnerID{"a"}, r.Members())

	// Re-adding after removal appends at the end.
	r.Add("b")
	assert.Equal(t, []domain.PartnerID{"a", "b"}, r.Members())
}

func TestRegistry_TaskIndex(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.AppendTask("a", 0)
	r.AppendTask("a", 3)

	assert.Equal(t, []uint64{0, 3}, r.Tasks("a"))
	assert.Equal(t, []uint64{}, r.Tasks("unknown"))

	r.PopTask("a")
	assert.Equal(t, []uint64{0}, r.Tasks("a"))

	r.Remove("a")
	assert.Empty(t, r.Tasks("a"), "removal clears the index")
}

func TestRegistry_ExportRestore(t *testing.T) {
	r := registry.New()
	r.Add("a")
	r.Add("b")
	r.AppendTask("b", 1)

	snap := domain.NewSnapshot()
	r.Export(snap)

	restored := registry.New()
	restored.Restore(snap)
	assert.Equal(t, []domain.PartnerID{"a", "b"}, restored.Members())
	assert.Equal(t, []uint64{1}, restored.Tasks("b"))

	// The snapshot is a copy.
	restored.AppendTask("b", 2)
	assert.Equal(t, []uint64{1}, snap.PartnerTasks["b"])
}
