package timelock_test

import (
	"context"
	"testing"
	"time"

	timelock "github.com/liqingnz/btc-timelock-contracts"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/memory"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

// countingLocker records lock acquisitions.
type countingLocker struct {
	locks, unlocks int
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.locks++
	return func(context.Context) error {
		l.unlocks++
		return nil
	}, nil
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	oracle := memory.NewOracle()
	vaults := memory.NewVaults()
	store := memory.NewStore()

	var burned []uint64
	eng, err := timelock.New(ctx, domain.Config{
		EngineAddress: "engine",
		Owner:         "owner",
		Relayers:      []domain.Identity{"relayer"},
	}, timelock.Collaborators{Oracle: oracle, Factory: vaults, Vaults: vaults},
		timelock.WithStore(store),
		timelock.WithClock(clock),
		timelock.WithLifecycleHooks(domain.LifecycleHooks{
			OnBurned: func(_ context.Context, e *domain.Event) { burned = append(burned, *e.TaskID) },
		}),
	)
	require.NoError(t, err)

	partner, err := eng.CreatePartner(ctx, "owner")
	require.NoError(t, err)

	id, err := eng.SetupTask(ctx, "owner", partner, clock.now.Add(100*time.Second), clock.now.Add(200*time.Second), 500, "addr1")
	require.NoError(t, err)

	hash := domain.TxHash{0x11}
	oracle.Attest(hash, 0)
	require.NoError(t, eng.ReceiveFunds(ctx, "relayer", 500, id, hash, 0, []byte{0x51}))

	clock.now = clock.now.Add(100 * time.Second)
	require.NoError(t, eng.Burn(ctx, "anyone", id))
	assert.Equal(t, []uint64{id}, burned)

	snap, err := eng.Inspect(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, domain.TaskStateBurned, snap.Tasks[0].State)

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateBurned, stored.Tasks[0].State)
}

func TestEngine_DistributedLock(t *testing.T) {
	ctx := context.Background()
	oracle := memory.NewOracle()
	vaults := memory.NewVaults()
	locker := &countingLocker{}

	eng, err := timelock.New(ctx, domain.Config{Owner: "owner"},
		timelock.Collaborators{Oracle: oracle, Factory: vaults, Vaults: vaults},
		timelock.WithDistributedLock(locker, "ledger", time.Second),
	)
	require.NoError(t, err)
	startup := locker.locks

	_, err = eng.CreatePartner(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, startup+1, locker.locks)
	assert.Equal(t, locker.locks, locker.unlocks)
}

func TestEngine_RequiresCollaborators(t *testing.T) {
	_, err := timelock.New(context.Background(), domain.Config{}, timelock.Collaborators{})
	assert.Error(t, err)
}
