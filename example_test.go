package timelock_test

import (
	"context"
	"fmt"
	"log"
	"time"

	timelock "github.com/liqingnz/btc-timelock-contracts"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/memory"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

// ExampleNew shows the engine used as a library with in-memory collaborators.
func ExampleNew() {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	// 1. Collaborators: the deposit oracle and the partner vaults.
	oracle := memory.NewOracle()
	vaults := memory.NewVaults()

	// 2. The engine, seeded with an owner and a relayer.
	eng, err := timelock.New(ctx, domain.Config{
		EngineAddress: "engine",
		Owner:         "owner",
		Relayers:      []domain.Identity{"relayer"},
	}, timelock.Collaborators{Oracle: oracle, Factory: vaults, Vaults: vaults},
		timelock.WithClock(fixedClock(now)),
	)
	if err != nil {
		log.Fatal(err)
	}

	// 3. A partner and a task that unlocks in a day.
	partner, err := eng.CreatePartner(ctx, "owner")
	if err != nil {
		log.Fatal(err)
	}
	id, err := eng.SetupTask(ctx, "owner", partner, now.Add(24*time.Hour), now.Add(time.Hour), 1000, "bc1qexample")
	if err != nil {
		log.Fatal(err)
	}

	// 4. The deposit is attested, then reported by the relayer.
	hash := domain.TxHash{0x42}
	oracle.Attest(hash, 0)
	if err := eng.ReceiveFunds(ctx, "relayer", 1000, id, hash, 0, nil); err != nil {
		log.Fatal(err)
	}

	task, _ := eng.GetTask(ctx, id)
	vault, _ := vaults.Get(partner)
	fmt.Println(task.State, vault.Balance())

	// 5. Burning before the timelock is rejected.
	err = eng.Burn(ctx, "anyone", id)
	fmt.Println(domain.Reason(err))

	// Output:
	// fulfilled 1000
	// timelock_not_reached
}
