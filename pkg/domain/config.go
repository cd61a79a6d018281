package domain

// Config is the immutable configuration of an engine instance.
type Config struct {
	// EngineAddress is the identity vaults are initialized with as their controller.
	EngineAddress Identity

	// Bridge identifies the external bridge the deposit oracle reads from.
	Bridge string

	// PartnerBeacon identifies the vault implementation partners are deployed from.
	PartnerBeacon string

	// Owner receives RoleDefaultAdmin and RoleAdmin when the ledger is first created.
	Owner Identity

	// Admins and Relayers are granted their roles when the ledger is first created.
	Admins   []Identity
	Relayers []Identity
}
