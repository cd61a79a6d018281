/*
Package domain contains the core models of the timelock bridge engine.

It defines the entities tracked by the Task Ledger and the Partner Registry,
the typed events the engine emits, and the sentinel errors every operation
reports. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Task: a bridging request tracked through Created, Fulfilled and Burned.
  - PartnerID: the identifier of a partner vault registered with the engine.
  - Identity and Role: the caller identity and the roles the guard checks.
  - Event: an append-only record describing an accepted mutation.
  - Snapshot: the persisted layout of the ledger.
*/
package domain
