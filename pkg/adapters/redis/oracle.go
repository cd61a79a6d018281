package redis

import (
	"context"
	"fmt"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Oracle implements ports.DepositOracle over a Redis set of confirmed outputs.
// An external indexer adds "<txhash>:<vout>" members once a deposit is final.
type Oracle struct {
	client backend.UniversalClient
	prefix string
}

// NewOracle creates an oracle on an existing client.
func NewOracle(client backend.UniversalClient, opts ...Option) *Oracle {
	o := apply(opts)
	return &Oracle{client: client, prefix: o.prefix}
}

func (o *Oracle) key() string {
	return o.prefix + "deposits"
}

func outpoint(txHash domain.TxHash, txOut uint32) string {
	return fmt.Sprintf("%s:%d", txHash, txOut)
}

// Attest records a confirmed deposit output.
func (o *Oracle) Attest(ctx context.Context, txHash domain.TxHash, txOut uint32) error {
	if err := o.client.SAdd(ctx, o.key(), outpoint(txHash, txOut)).Err(); err != nil {
		return fmt.Errorf("failed to attest deposit: %w", err)
	}
	return nil
}

// IsDeposited reports whether the output was attested.
func (o *Oracle) IsDeposited(ctx context.Context, txHash domain.TxHash, txOut uint32) (bool, error) {
	ok, err := o.client.SIsMember(ctx, o.key(), outpoint(txHash, txOut)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query deposit: %w", err)
	}
	return ok, nil
}
