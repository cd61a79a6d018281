package ledger

import (
	"context"
	"fmt"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
)

// CreatePartner deploys a new partner vault through the factory and registers it.
// Requires RoleAdmin.
//
// The vault id is only known after deployment, so the vault is deployed before
// the registration is persisted. If that write fails the call returns an error
// and the deployed vault stays unregistered; the factory does not undeploy it.
func (l *Ledger) CreatePartner(ctx context.Context, caller domain.Identity) (domain.PartnerID, error) {
	var id domain.PartnerID
	err := l.mutate(ctx, "create_partner", func(ctx context.Context) ([]domain.Event, error) {
		if err := l.guard.Require(caller, domain.RoleAdmin); err != nil {
			return nil, err
		}

		deployed, err := l.factory.Deploy(ctx, ports.VaultInit{Owner: caller, Engine: l.cfg.EngineAddress})
		if err != nil {
			return nil, fmt.Errorf("deploy partner vault: %w", err)
		}
		if deployed == "" {
			return nil, fmt.Errorf("deploy partner vault: factory returned an empty id")
		}

		if l.registry.Add(deployed) {
			if err := l.persist(ctx); err != nil {
				l.registry.Remove(deployed)
				l.logger.Error("Deployed vault left unregistered", "partner", deployed, "err", err)
				return nil, fmt.Errorf("persist ledger: %w", err)
			}
		}

		id = deployed
		return []domain.Event{{Type: domain.EventPartnerCreated, Partner: deployed, Caller: caller}}, nil
	})
	return id, err
}

// RemovePartner deregisters a partner and clears its task index.
// Tasks created under the partner stay addressable by id. Requires RoleAdmin.
func (l *Ledger) RemovePartner(ctx context.Context, caller domain.Identity, partner domain.PartnerID) error {
	return l.mutate(ctx, "remove_partner", func(ctx context.Context) ([]domain.Event, error) {
		if err := l.guard.Require(caller, domain.RoleAdmin); err != nil {
			return nil, err
		}
		if !l.registry.Contains(partner) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPartner, partner)
		}

		before := domain.NewSnapshot()
		l.registry.Export(before)

		l.registry.Remove(partner)
		if err := l.persist(ctx); err != nil {
			l.registry.Restore(before)
			return nil, fmt.Errorf("persist ledger: %w", err)
		}

		return []domain.Event{{Type: domain.EventPartnerRemoved, Partner: partner, Caller: caller}}, nil
	})
}

// GetPartner returns the partner at index. Positions are not stable across removals.
func (l *Ledger) GetPartner(ctx context.Context, index uint64) (domain.PartnerID, error) {
	var id domain.PartnerID
	err := l.view(ctx, func() error {
		var err error
		id, err = l.registry.At(index)
		return err
	})
	return id, err
}

// IsPartner reports whether id is currently registered.
func (l *Ledger) IsPartner(ctx context.Context, id domain.PartnerID) (bool, error) {
	var ok bool
	err := l.view(ctx, func() error {
		ok = l.registry.Contains(id)
		return nil
	})
	return ok, err
}

// GetPartnerTasks returns the task ids created under partner.
// Empty for unknown partners and for partners that were removed.
func (l *Ledger) GetPartnerTasks(ctx context.Context, partner domain.PartnerID) ([]uint64, error) {
	var ids []uint64
	err := l.view(ctx, func() error {
		ids = l.registry.Tasks(partner)
		return nil
	})
	return ids, err
}

// PartnerCount returns the number of registered partners.
func (l *Ledger) PartnerCount(ctx context.Context) (int, error) {
	var n int
	err := l.view(ctx, func() error {
		n = l.registry.Len()
		return nil
	})
	return n, err
}
