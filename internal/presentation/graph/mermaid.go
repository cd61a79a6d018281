package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// Overlay carries the time used to mark fulfilled tasks that can be burned.
type Overlay struct {
	Now time.Time
}

// GenerateMermaid produces a Mermaid flowchart of partners and their tasks.
// Shapes:
// - Registered partner: ((Circle))
// - Removed partner: [/Parallelogram/]
// - Task: [Rectangle] labelled with state and amount
// Tasks are styled by state. With an overlay, fulfilled tasks past their timelock are marked burnable.
func GenerateMermaid(snap *domain.Snapshot, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	registered := make(map[domain.PartnerID]bool, len(snap.Partners))
	for _, p := range snap.Partners {
		registered[p] = true
		sb.WriteString(fmt.Sprintf("    %s((%q))\n", partnerNode(p), string(p)))
	}

	byPartner := make(map[domain.PartnerID][]domain.Task)
	var order []domain.PartnerID
	for _, t := range snap.Tasks {
		if _, seen := byPartner[t.Partner]; !seen {
			order = append(order, t.Partner)
		}
		byPartner[t.Partner] = append(byPartner[t.Partner], t)
	}

	for _, p := range order {
		// Tasks outlive their partner's registration.
		arrow := "-->"
		if !registered[p] {
			arrow = "-.->"
			sb.WriteString(fmt.Sprintf("    %s[/%q/]\n", partnerNode(p), string(p)+" (removed)"))
		}
		for _, t := range byPartner[p] {
			label := fmt.Sprintf("#%d %s <br/> %d sat", t.ID, t.State, t.Amount)
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", taskNode(t.ID), label))
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", partnerNode(p), arrow, taskNode(t.ID)))
		}
	}

	if len(snap.Tasks) == 0 {
		return sb.String()
	}

	sb.WriteString("\n    %% State Styles\n")
	// Black text keeps labels readable on both light and dark themes.
	sb.WriteString("    classDef created fill:#e1f5fe,stroke:#01579b,color:#000;\n")
	sb.WriteString("    classDef fulfilled fill:#fff9c4,stroke:#fbc02d,color:#000;\n")
	sb.WriteString("    classDef burned fill:#eeeeee,stroke:#616161,color:#000;\n")
	sb.WriteString("    classDef burnable fill:#ffcdd2,stroke:#c62828,stroke-width:3px,color:#000;\n")
	for _, t := range snap.Tasks {
		if !t.State.Valid() {
			continue
		}
		class := t.State.String()
		if overlay != nil && t.State == domain.TaskStateFulfilled && !overlay.Now.Before(t.TimelockEndTime) {
			class = "burnable"
		}
		sb.WriteString(fmt.Sprintf("    class %s %s;\n", taskNode(t.ID), class))
	}
	return sb.String()
}

func taskNode(id uint64) string {
	return fmt.Sprintf("task_%d", id)
}

func partnerNode(p domain.PartnerID) string {
	return "partner_" + sanitizeMermaidID(string(p))
}

func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, id)
}
