package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// LedgerReport renders snap as a markdown document. now decides which fulfilled tasks are burnable.
func LedgerReport(snap *domain.Snapshot, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("# Timelock ledger\n\n")

	counts := make(map[domain.TaskState]int)
	var locked, burnable uint64
	for _, t := range snap.Tasks {
		counts[t.State]++
		if t.State == domain.TaskStateFulfilled {
			if now.Before(t.TimelockEndTime) {
				locked += t.Amount
			} else {
				burnable += t.Amount
			}
		}
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Partners | %d |\n", len(snap.Partners))
	fmt.Fprintf(&sb, "| Tasks | %d |\n", len(snap.Tasks))
	for _, st := range []domain.TaskState{domain.TaskStateCreated, domain.TaskStateFulfilled, domain.TaskStateBurned} {
		fmt.Fprintf(&sb, "| %s | %d |\n", st, counts[st])
	}
	fmt.Fprintf(&sb, "| Locked amount | %d |\n", locked)
	fmt.Fprintf(&sb, "| Burnable amount | %d |\n", burnable)

	sb.WriteString("\n## Partners\n\n")
	if len(snap.Partners) == 0 {
		sb.WriteString("_No registered partners._\n")
	} else {
		sb.WriteString("| # | Partner | Tasks |\n|---|---|---|\n")
		for i, p := range snap.Partners {
			fmt.Fprintf(&sb, "| %d | `%s` | %d |\n", i, p, len(snap.PartnerTasks[p]))
		}
	}

	sb.WriteString("\n## Tasks\n\n")
	if len(snap.Tasks) == 0 {
		sb.WriteString("_No tasks._\n")
	} else {
		sb.WriteString("| ID | Partner | State | Amount | Timelock | Deadline | Deposit |\n|---|---|---|---|---|---|---|\n")
		for _, t := range snap.Tasks {
			state := t.State.String()
			if t.State == domain.TaskStateFulfilled && !now.Before(t.TimelockEndTime) {
				state += " (burnable)"
			}
			deposit := "-"
			if t.State >= domain.TaskStateFulfilled {
				deposit = fmt.Sprintf("`%s:%d`", t.TxHash, t.TxOut)
			}
			fmt.Fprintf(&sb, "| %d | `%s` | %s | %d | %s | %s | %s |\n",
				t.ID, t.Partner, state, t.Amount,
				t.TimelockEndTime.UTC().Format(time.RFC3339),
				t.Deadline.UTC().Format(time.RFC3339),
				deposit,
			)
		}
	}

	sb.WriteString("\n## Roles\n\n")
	roles := make([]string, 0, len(snap.Roles))
	for r := range snap.Roles {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	for _, r := range roles {
		members := snap.Roles[domain.Role(r)]
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = "`" + string(m) + "`"
		}
		fmt.Fprintf(&sb, "- **%s**: %s\n", r, strings.Join(names, ", "))
	}
	if len(roles) == 0 {
		sb.WriteString("_No role members._\n")
	}
	return sb.String()
}
