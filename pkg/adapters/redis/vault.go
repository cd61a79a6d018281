package redis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

var (
	// ErrInsufficientBalance is returned when a burn exceeds the vault balance.
	ErrInsufficientBalance = errors.New("insufficient vault balance")
	// ErrVaultNotFound is returned when no vault hash exists for a partner.
	ErrVaultNotFound = errors.New("vault not found")
)

// Returns -1 when the vault is missing and -2 when the balance is short.
var burnScript = backend.NewScript(`
if redis.call("exists", KEYS[1]) == 0 then
	return -1
end
local balance = tonumber(redis.call("hget", KEYS[1], "balance") or "0")
local amount = tonumber(ARGV[1])
if amount > balance then
	return -2
end
redis.call("hincrby", KEYS[1], "burns", 1)
return redis.call("hincrby", KEYS[1], "balance", -amount)
`)

var creditScript = backend.NewScript(`
if redis.call("exists", KEYS[1]) == 0 then
	return -1
end
redis.call("hincrby", KEYS[1], "credits", 1)
return redis.call("hincrby", KEYS[1], "balance", ARGV[1])
`)

// Vaults deploys partner vaults as Redis hashes.
// It implements ports.VaultFactory and ports.VaultResolver.
type Vaults struct {
	client backend.UniversalClient
	prefix string
}

// NewVaults creates a vault directory on an existing client.
func NewVaults(client backend.UniversalClient, opts ...Option) *Vaults {
	o := apply(opts)
	return &Vaults{client: client, prefix: o.prefix}
}

func (v *Vaults) key(partner domain.PartnerID) string {
	return v.prefix + "vault:" + string(partner)
}

// Deploy creates a vault hash under a fresh random id.
func (v *Vaults) Deploy(ctx context.Context, init ports.VaultInit) (domain.PartnerID, error) {
	id := domain.PartnerID(uuid.NewString())
	err := v.client.HSet(ctx, v.key(id),
		"owner", string(init.Owner),
		"engine", string(init.Engine),
		"balance", 0,
	).Err()
	if err != nil {
		return "", fmt.Errorf("failed to deploy vault: %w", err)
	}
	return id, nil
}

// Resolve returns the vault for partner without checking that it exists;
// calls on a missing vault fail with ErrVaultNotFound.
func (v *Vaults) Resolve(ctx context.Context, partner domain.PartnerID) (ports.Vault, error) {
	return &Vault{client: v.client, key: v.key(partner), partner: partner}, nil
}

// Balance returns the vault balance.
func (v *Vaults) Balance(ctx context.Context, partner domain.PartnerID) (uint64, error) {
	n, err := v.client.HGet(ctx, v.key(partner), "balance").Uint64()
	if errors.Is(err, backend.Nil) {
		return 0, fmt.Errorf("%w: %q", ErrVaultNotFound, partner)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read vault balance: %w", err)
	}
	return n, nil
}

// Vault is a handle on one partner vault hash.
type Vault struct {
	client  backend.UniversalClient
	key     string
	partner domain.PartnerID
}

// Credit adds amount to the balance.
func (v *Vault) Credit(ctx context.Context, amount uint64) error {
	if amount > math.MaxInt64 {
		return fmt.Errorf("credit %d exceeds the redis integer range", amount)
	}
	n, err := creditScript.Run(ctx, v.client, []string{v.key}, int64(amount)).Int64()
	if err != nil {
		return fmt.Errorf("failed to credit vault: %w", err)
	}
	if n == -1 {
		return fmt.Errorf("%w: %q", ErrVaultNotFound, v.partner)
	}
	return nil
}

// Burn subtracts amount from the balance atomically.
func (v *Vault) Burn(ctx context.Context, amount uint64) error {
	if amount > math.MaxInt64 {
		return fmt.Errorf("%w: burn %d", ErrInsufficientBalance, amount)
	}
	n, err := burnScript.Run(ctx, v.client, []string{v.key}, int64(amount)).Int64()
	if err != nil {
		return fmt.Errorf("failed to burn vault: %w", err)
	}
	switch n {
	case -1:
		return fmt.Errorf("%w: %q", ErrVaultNotFound, v.partner)
	case -2:
		return fmt.Errorf("%w: burn %d from %q", ErrInsufficientBalance, amount, v.partner)
	}
	return nil
}
