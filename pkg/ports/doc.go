/*
Package ports defines the driven ports (interfaces) for the timelock engine.

These interfaces decouple the ledger from its collaborators, allowing the
engine to run against in-memory fakes in tests and against Redis, SQLite or
the filesystem in production.

# Key Interfaces

  - DepositOracle: read-only attestation that a deposit occurred.
  - Vault, VaultFactory, VaultResolver: the partner vault capability.
  - LedgerStore: persists and loads the ledger Snapshot.
  - DistributedLocker: serializes operations across engine replicas.
  - Clock: the time source preconditions are evaluated against.
*/
package ports
