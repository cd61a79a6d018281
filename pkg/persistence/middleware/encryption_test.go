package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/memory"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/persistence/middleware"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sealed(t *testing.T, next ports.LedgerStore, cfg middleware.EncryptionConfig) ports.LedgerStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return middleware.Chain(next, mw)
}

func sample() *domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.Partners = []domain.PartnerID{"p1"}
	snap.Tasks = []domain.Task{{ID: 0, Partner: "p1", State: domain.TaskStateCreated, Amount: 21, BTCAddress: "bc1qsecret"}}
	snap.PartnerTasks["p1"] = []uint64{0}
	return snap
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	store := sealed(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrLedgerNotFound)

	require.NoError(t, store.Save(ctx, sample()))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample().Tasks, loaded.Tasks)
	assert.Equal(t, sample().PartnerTasks, loaded.PartnerTasks)
	assert.NotNil(t, loaded.Roles)
	assert.Nil(t, loaded.Sealed)
}

func TestEncryptionMiddleware_HidesContent(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	store := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	require.NoError(t, store.Save(ctx, sample()))

	raw, err := underlying.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, raw.Partners)
	assert.Empty(t, raw.Tasks)
	require.NotEmpty(t, raw.Sealed)
	assert.False(t, strings.Contains(string(raw.Sealed), "bc1qsecret"))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bc1qsecret", loaded.Tasks[0].BTCAddress)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	require.NoError(t, sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey}).Save(ctx, sample()))

	_, err := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey}).Load(ctx)
	assert.Error(t, err, "new key alone cannot read the old ledger")

	rotated := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})
	loaded, err := rotated.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, rotated.Save(ctx, loaded))

	// Re-sealed under the new key.
	loaded, err = sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.PartnerID{"p1"}, loaded.Partners)
}

func TestEncryptionMiddleware_Plaintext(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(ctx, sample()))

	_, err := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)}).Load(ctx)
	assert.ErrorIs(t, err, middleware.ErrNotSealed)

	loaded, err := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t), AllowPlaintext: true}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.PartnerID{"p1"}, loaded.Partners)
}

func TestEncryptionMiddleware_Tampered(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	store := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, store.Save(ctx, sample()))

	raw, err := underlying.Load(ctx)
	require.NoError(t, err)
	raw.Sealed[len(raw.Sealed)-1] ^= 0xff
	require.NoError(t, underlying.Save(ctx, raw))

	_, err = store.Load(ctx)
	assert.ErrorContains(t, err, "decrypt")
}

func TestNewEncryptionMiddleware_KeyLength(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t), FallbackKeys: [][]byte{{1}}})
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.ParseKey("!!")
	assert.Error(t, err)
	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}
