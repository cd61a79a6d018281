package domain

// Identity is the opaque identifier of a caller (an account address).
type Identity string

// PartnerID identifies a registered partner vault.
type PartnerID string

// Role names a permission held by identities.
type Role string

const (
	// RoleDefaultAdmin administers role membership.
	RoleDefaultAdmin Role = "default_admin"
	// RoleAdmin manages partners and tasks.
	RoleAdmin Role = "admin"
	// RoleRelayer reports verified deposits.
	RoleRelayer Role = "relayer"
)

// Roles lists every role known to the engine.
var Roles = []Role{RoleDefaultAdmin, RoleAdmin, RoleRelayer}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", &ParameterError{Field: "role", Reason: "unknown role " + s}
}
