package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/redis"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunLedgerStoreContract(t, redis.NewStore(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewStore(client, redis.WithPrefix("custom:app:"))

	require.NoError(t, store.Save(context.Background(), domain.NewSnapshot()))
	assert.True(t, mr.Exists("custom:app:ledger"), "Expected key with custom prefix to exist")
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := setup(t)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"ledger", "{broken"))

	_, err := redis.NewStore(client).Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLedgerNotFound)
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	_, client := setup(t)
	locker := redis.NewLocker(client)
	ctx := context.Background()

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "ledger", 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			assert.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
}

func TestRedisLocker_ContextCancel(t *testing.T) {
	_, client := setup(t)
	locker := redis.NewLocker(client)

	unlock, err := locker.Lock(context.Background(), "ledger", time.Minute)
	require.NoError(t, err)
	defer func() { _ = unlock(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "ledger", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker_UnlockKeepsForeignLock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "ledger", time.Second)
	require.NoError(t, err)

	// Our lock expires and another holder takes the key.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"lock:ledger", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get(redis.DefaultPrefix + "lock:ledger")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisOracle(t *testing.T) {
	_, client := setup(t)
	oracle := redis.NewOracle(client)
	ctx := context.Background()
	hash := domain.TxHash{0x01}

	ok, err := oracle.IsDeposited(ctx, hash, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, oracle.Attest(ctx, hash, 0))

	ok, err = oracle.IsDeposited(ctx, hash, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = oracle.IsDeposited(ctx, hash, 1)
	require.NoError(t, err)
	assert.False(t, ok, "a different output index is a different deposit")
}

func TestRedisVaults(t *testing.T) {
	mr, client := setup(t)
	vaults := redis.NewVaults(client)
	ctx := context.Background()

	id, err := vaults.Deploy(ctx, ports.VaultInit{Owner: "alice", Engine: "engine"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "alice", mr.HGet(redis.DefaultPrefix+"vault:"+string(id), "owner"))

	v, err := vaults.Resolve(ctx, id)
	require.NoError(t, err)

	require.NoError(t, v.Credit(ctx, 500))
	require.NoError(t, v.Credit(ctx, 20))

	bal, err := vaults.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(520), bal)

	require.NoError(t, v.Burn(ctx, 500))
	assert.ErrorIs(t, v.Burn(ctx, 21), redis.ErrInsufficientBalance)

	bal, err = vaults.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), bal)
}

func TestRedisVaults_Missing(t *testing.T) {
	_, client := setup(t)
	vaults := redis.NewVaults(client)
	ctx := context.Background()

	v, err := vaults.Resolve(ctx, "ghost")
	require.NoError(t, err)
	assert.ErrorIs(t, v.Credit(ctx, 1), redis.ErrVaultNotFound)
	assert.ErrorIs(t, v.Burn(ctx, 1), redis.ErrVaultNotFound)

	_, err = vaults.Balance(ctx, "ghost")
	assert.ErrorIs(t, err, redis.ErrVaultNotFound)
}
