package ports

import (
	"context"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// Vault is the capability the engine holds on a partner vault.
// A returned error aborts the enclosing engine operation.
type Vault interface {
	Credit(ctx context.Context, amount uint64) error
	Burn(ctx context.Context, amount uint64) error
}

// VaultInit is the initialization payload a new vault instance receives.
type VaultInit struct {
	Owner  domain.Identity
	Engine domain.Identity
}

// VaultFactory allocates new partner vault instances.
type VaultFactory interface {
	Deploy(ctx context.Context, init VaultInit) (domain.PartnerID, error)
}

// VaultResolver returns the vault registered under a partner id.
type VaultResolver interface {
	Resolve(ctx context.Context, partner domain.PartnerID) (Vault, error)
}
