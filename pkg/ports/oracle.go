package ports

import (
	"context"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// DepositOracle attests deposits observed on the external chain.
// The engine never mutates oracle state.
type DepositOracle interface {
	// IsDeposited reports whether output txOut of transaction txHash was deposited
	// into the bridge. An error means the oracle could not answer.
	IsDeposited(ctx context.Context, txHash domain.TxHash, txOut uint32) (bool, error)
}
