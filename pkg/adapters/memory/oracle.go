package memory

import (
	"context"
	"sync"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

type outpoint struct {
	hash domain.TxHash
	out  uint32
}

// Oracle is an in-memory deposit oracle fed by Attest.
// Safe for concurrent use.
type Oracle struct {
	mu       sync.RWMutex
	deposits map[outpoint]struct{}
}

// NewOracle creates an oracle with no attested deposits.
func NewOracle() *Oracle {
	return &Oracle{
		deposits: make(map[outpoint]struct{}),
	}
}

// Attest records that output txOut of txHash was deposited.
func (o *Oracle) Attest(txHash domain.TxHash, txOut uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deposits[outpoint{txHash, txOut}] = struct{}{}
}

// IsDeposited reports whether the output was attested.
func (o *Oracle) IsDeposited(ctx context.Context, txHash domain.TxHash, txOut uint32) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.deposits[outpoint{txHash, txOut}]
	return ok, nil
}
