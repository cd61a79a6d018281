package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/internal/ledger"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/memory"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	"github.com/stretchr/testify/require"
)

const (
	owner   domain.Identity = "owner"
	admin   domain.Identity = "admin"
	relayer domain.Identity = "relayer"
	anyone  domain.Identity = "anyone"
)

var t0 = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// flakyStore fails Save while failing is set.
type flakyStore struct {
	*memory.Store
	mu      sync.Mutex
	failing bool
	saves   int
}

func (s *flakyStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	s.saves++
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, snap)
}

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

// scriptedVault wraps a memory vault with failure injection and a hook run during calls.
type scriptedVault struct {
	inner     ports.Vault
	creditErr error
	burnErr   error
	during    func(ctx context.Context)
}

func (v *scriptedVault) Credit(ctx context.Context, amount uint64) error {
	if v.during != nil {
		v.during(ctx)
	}
	if v.creditErr != nil {
		return v.creditErr
	}
	return v.inner.Credit(ctx, amount)
}

func (v *scriptedVault) Burn(ctx context.Context, amount uint64) error {
	if v.during != nil {
		v.during(ctx)
	}
	if v.burnErr != nil {
		return v.burnErr
	}
	return v.inner.Burn(ctx, amount)
}

type scriptedResolver struct {
	inner *memory.Vaults
	vault *scriptedVault
}

func (r *scriptedResolver) Resolve(ctx context.Context, partner domain.PartnerID) (ports.Vault, error) {
	v, err := r.inner.Resolve(ctx, partner)
	if err != nil {
		return nil, err
	}
	if r.vault == nil {
		return v, nil
	}
	r.vault.inner = v
	return r.vault, nil
}

type fixture struct {
	ledger   *ledger.Ledger
	clock    *fakeClock
	oracle   *memory.Oracle
	vaults   *memory.Vaults
	resolver *scriptedResolver
	store    *flakyStore
}

func newFixture(t *testing.T, opts ...ledger.Option) *fixture {
	t.Helper()

	f := &fixture{
		clock:  &fakeClock{now: t0},
		oracle: memory.NewOracle(),
		vaults: memory.NewVaults(),
		store:  &flakyStore{Store: memory.NewStore()},
	}
	f.resolver = &scriptedResolver{inner: f.vaults}

	cfg := domain.Config{
		EngineAddress: "engine",
		Owner:         owner,
		Admins:        []domain.Identity{admin},
		Relayers:      []domain.Identity{relayer},
	}
	all := append([]ledger.Option{ledger.WithClock(f.clock), ledger.WithStore(f.store)}, opts...)
	l, err := ledger.New(context.Background(), cfg, ledger.Deps{
		Oracle:  f.oracle,
		Factory: f.vaults,
		Vaults:  f.resolver,
	}, all...)
	require.NoError(t, err)
	f.ledger = l
	return f
}

func (f *fixture) partner(t *testing.T) domain.PartnerID {
	t.Helper()
	id, err := f.ledger.CreatePartner(context.Background(), admin)
	require.NoError(t, err)
	return id
}

func (f *fixture) vault(t *testing.T, partner domain.PartnerID) *memory.Vault {
	t.Helper()
	v, err := f.vaults.Get(partner)
	require.NoError(t, err)
	return v
}

// task creates a task with timelock t0+100s, deadline t0+200s and amount 500.
func (f *fixture) task(t *testing.T, partner domain.PartnerID) uint64 {
	t.Helper()
	id, err := f.ledger.SetupTask(context.Background(), admin, partner, t0.Add(100*time.Second), t0.Add(200*time.Second), 500, "addr1")
	require.NoError(t, err)
	return id
}

// fulfill attests and reports the deposit for a task created by task.
func (f *fixture) fulfill(t *testing.T, id uint64) domain.TxHash {
	t.Helper()
	hash := domain.TxHash{byte(id + 1)}
	f.oracle.Attest(hash, 0)
	require.NoError(t, f.ledger.ReceiveFunds(context.Background(), relayer, 500, id, hash, 0, []byte{0x51}))
	return hash
}
