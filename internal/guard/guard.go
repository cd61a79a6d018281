// Package guard implements the role checks every mutating engine operation runs first.
package guard

import (
	"fmt"
	"sort"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// Guard holds role memberships. It is not safe for concurrent use;
// the ledger serializes access.
type Guard struct {
	members map[domain.Role]map[domain.Identity]struct{}
}

// New creates a guard with no members.
func New() *Guard {
	return &Guard{
		members: make(map[domain.Role]map[domain.Identity]struct{}),
	}
}

// Require returns domain.ErrUnauthorized unless identity holds role.
func (g *Guard) Require(identity domain.Identity, role domain.Role) error {
	if !g.Has(identity, role) {
		return fmt.Errorf("%w: %q lacks role %s", domain.ErrUnauthorized, identity, role)
	}
	return nil
}

// Has reports whether identity holds role.
func (g *Guard) Has(identity domain.Identity, role domain.Role) bool {
	_, ok := g.members[role][identity]
	return ok
}

// Grant adds identity to role. It reports whether membership changed.
func (g *Guard) Grant(role domain.Role, identity domain.Identity) bool {
	set, ok := g.members[role]
	if !ok {
		set = make(map[domain.Identity]struct{})
		g.members[role] = set
	}
	if _, exists := set[identity]; exists {
		return false
	}
	set[identity] = struct{}{}
	return true
}

// Revoke removes identity from role. It reports whether membership changed.
func (g *Guard) Revoke(role domain.Role, identity domain.Identity) bool {
	set, ok := g.members[role]
	if !ok {
		return false
	}
	if _, exists := set[identity]; !exists {
		return false
	}
	delete(set, identity)
	if len(set) == 0 {
		delete(g.members, role)
	}
	return true
}

// Members returns the identities holding role, sorted.
func (g *Guard) Members(role domain.Role) []domain.Identity {
	out := make([]domain.Identity, 0, len(g.members[role]))
	for id := range g.members[role] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Export returns every membership, keyed by role.
func (g *Guard) Export() map[domain.Role][]domain.Identity {
	out := make(map[domain.Role][]domain.Identity, len(g.members))
	for role := range g.members {
		out[role] = g.Members(role)
	}
	return out
}

// Restore replaces all memberships.
func (g *Guard) Restore(roles map[domain.Role][]domain.Identity) {
	g.members = make(map[domain.Role]map[domain.Identity]struct{}, len(roles))
	for role, ids := range roles {
		for _, id := range ids {
			g.Grant(role, id)
		}
	}
}
