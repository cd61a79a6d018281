/*
Package timelock is a custody ledger for bridged Bitcoin deposits.

It tracks bridging tasks through Created, Fulfilled and Burned. Relayers
report deposits that an oracle has verified, and the engine credits the
partner vault that owns the task. Once the task's timelock ends, anyone may
burn it. Administrators register partners, set up tasks and can force-burn
fulfilled tasks early.

# Usage

	oracle := memory.NewOracle()
	vaults := memory.NewVaults()

	eng, err := timelock.New(ctx, domain.Config{
		EngineAddress: "engine",
		Owner:         "owner",
		Relayers:      []domain.Identity{"relayer"},
	}, timelock.Collaborators{Oracle: oracle, Factory: vaults, Vaults: vaults})
	if err != nil {
		log.Fatal(err)
	}

	partner, _ := eng.CreatePartner(ctx, "owner")
	id, _ := eng.SetupTask(ctx, "owner", partner, unlock, deadline, 500, "bc1q...")

Every operation is a single serialized unit of work. State is persisted
through a ports.LedgerStore before any vault call and reverted if the call
fails. Accepted operations are appended to an event log that can be
replayed or streamed.
*/
package timelock
