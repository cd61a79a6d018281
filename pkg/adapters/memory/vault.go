package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
)

// ErrInsufficientBalance is returned when a burn exceeds the vault balance.
var ErrInsufficientBalance = errors.New("insufficient vault balance")

// ErrVaultNotFound is returned when no vault was deployed under a partner id.
var ErrVaultNotFound = errors.New("vault not found")

// Vaults deploys and tracks in-memory partner vaults.
// It implements ports.VaultFactory and ports.VaultResolver. Safe for concurrent use.
type Vaults struct {
	mu     sync.Mutex
	vaults map[domain.PartnerID]*Vault
}

// NewVaults creates an empty vault directory.
func NewVaults() *Vaults {
	return &Vaults{
		vaults: make(map[domain.PartnerID]*Vault),
	}
}

// Deploy creates a vault with a fresh random id.
func (v *Vaults) Deploy(ctx context.Context, init ports.VaultInit) (domain.PartnerID, error) {
	id := domain.PartnerID(uuid.NewString())

	v.mu.Lock()
	defer v.mu.Unlock()
	v.vaults[id] = &Vault{owner: init.Owner, engine: init.Engine}
	return id, nil
}

// Resolve returns the vault deployed under partner.
func (v *Vaults) Resolve(ctx context.Context, partner domain.PartnerID) (ports.Vault, error) {
	vault, err := v.Get(partner)
	if err != nil {
		return nil, err
	}
	return vault, nil
}

// Get returns the concrete vault deployed under partner.
func (v *Vaults) Get(partner domain.PartnerID) (*Vault, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	vault, ok := v.vaults[partner]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVaultNotFound, partner)
	}
	return vault, nil
}

// Vault keeps a credited balance for one partner.
type Vault struct {
	mu      sync.Mutex
	owner   domain.Identity
	engine  domain.Identity
	balance uint64
	credits uint64
	burns   uint64
}

// Credit adds amount to the balance.
func (v *Vault) Credit(ctx context.Context, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.balance+amount < v.balance {
		return fmt.Errorf("credit %d overflows balance %d", amount, v.balance)
	}
	v.balance += amount
	v.credits++
	return nil
}

// Burn subtracts amount from the balance.
func (v *Vault) Burn(ctx context.Context, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount > v.balance {
		return fmt.Errorf("%w: burn %d, balance %d", ErrInsufficientBalance, amount, v.balance)
	}
	v.balance -= amount
	v.burns++
	return nil
}

// Balance returns the current balance.
func (v *Vault) Balance() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance
}

// Owner returns the identity the vault was initialized with.
func (v *Vault) Owner() domain.Identity {
	return v.owner
}

// Engine returns the controller identity the vault was initialized with.
func (v *Vault) Engine() domain.Identity {
	return v.engine
}

// Calls returns the number of successful credit and burn calls.
func (v *Vault) Calls() (credits, burns uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.credits, v.burns
}
