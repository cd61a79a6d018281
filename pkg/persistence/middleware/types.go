// Package middleware wraps ledger stores with cross-cutting persistence behavior.
package middleware

import "github.com/liqingnz/btc-timelock-contracts/pkg/ports"

// Middleware allows wrapping a LedgerStore to add behavior.
type Middleware func(ports.LedgerStore) ports.LedgerStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.LedgerStore, mws ...Middleware) ports.LedgerStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
