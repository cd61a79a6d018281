package ledger

import (
	"context"
	"fmt"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// GrantRole adds account to role. Requires RoleDefaultAdmin.
// Granting an existing membership succeeds without emitting an event.
func (l *Ledger) GrantRole(ctx context.Context, caller domain.Identity, role domain.Role, account domain.Identity) error {
	return l.mutate(ctx, "grant_role", func(ctx context.Context) ([]domain.Event, error) {
		if err := l.guard.Require(caller, domain.RoleDefaultAdmin); err != nil {
			return nil, err
		}
		if account == "" {
			return nil, &domain.ParameterError{Field: "account", Reason: "must not be empty"}
		}
		if !l.guard.Grant(role, account) {
			return nil, nil
		}
		if err := l.persist(ctx); err != nil {
			l.guard.Revoke(role, account)
			return nil, fmt.Errorf("persist ledger: %w", err)
		}
		return []domain.Event{{Type: domain.EventRoleGranted, Role: role, Account: account, Caller: caller}}, nil
	})
}

// RevokeRole removes account from role. Requires RoleDefaultAdmin.
func (l *Ledger) RevokeRole(ctx context.Context, caller domain.Identity, role domain.Role, account domain.Identity) error {
	return l.mutate(ctx, "revoke_role", func(ctx context.Context) ([]domain.Event, error) {
		if err := l.guard.Require(caller, domain.RoleDefaultAdmin); err != nil {
			return nil, err
		}
		if !l.guard.Revoke(role, account) {
			return nil, nil
		}
		if err := l.persist(ctx); err != nil {
			l.guard.Grant(role, account)
			return nil, fmt.Errorf("persist ledger: %w", err)
		}
		return []domain.Event{{Type: domain.EventRoleRevoked, Role: role, Account: account, Caller: caller}}, nil
	})
}

// HasRole reports whether account holds role.
func (l *Ledger) HasRole(ctx context.Context, account domain.Identity, role domain.Role) (bool, error) {
	var ok bool
	err := l.view(ctx, func() error {
		ok = l.guard.Has(account, role)
		return nil
	})
	return ok, err
}
