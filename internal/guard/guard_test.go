package guard_test

import (
	"testing"

	"github.com/liqingnz/btc-timelock-contracts/internal/guard"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGuard_Require(t *testing.T) {
	g := guard.New()
	g.Grant(domain.RoleAdmin, "alice")

	assert.NoError(t, g.Require("alice", domain.RoleAdmin))
	assert.ErrorIs(t, g.Require("alice", domain.RoleRelayer), domain.ErrUnauthorized)
	assert.ErrorIs(t, g.Require("bob", domain.RoleAdmin), domain.ErrUnauthorized)
}

func TestGuard_GrantRevoke(t *testing.T) {
	g := guard.New()

	assert.True(t, g.Grant(domain.RoleRelayer, "relay"))
	assert.False(t, g.Grant(domain.RoleRelayer, "relay"), "second grant is a no-op")
	assert.True(t, g.Has("relay", domain.RoleRelayer))

	assert.True(t, g.Revoke(domain.RoleRelayer, "relay"))
	assert.False(t, g.Revoke(domain.RoleRelayer, "relay"), "second revoke is a no-op")
	assert.False(t, g.Has("relay", domain.RoleRelayer))
	assert.Empty(t, g.Members(domain.RoleRelayer))
}

func TestGuard_ExportRestore(t *testing.T) {
	g := guard.New()
	g.Grant(domain.RoleAdmin, "bob")
	g.Grant(domain.RoleAdmin, "alice")
	g.Grant(domain.RoleRelayer, "relay")

	exported := g.Export()
	assert.Equal(t, []domain.Identity{"alice", "bob"}, exported[domain.RoleAdmin])

	restored := guard.New()
	restored.Restore(exported)
	assert.True(t, restored.Has("alice", domain.RoleAdmin))
	assert.True(t, restored.Has("relay", domain.RoleRelayer))
	assert.False(t, restored.Has("relay", domain.RoleAdmin))
}
