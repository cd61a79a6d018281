package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/internal/presentation/graph"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

var unlock = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func snapshot() *domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.Partners = []domain.PartnerID{"p-1"}
	snap.Tasks = []domain.Task{
		{ID: 0, Partner: "p-1", State: domain.TaskStateCreated, Amount: 10, TimelockEndTime: unlock},
		{ID: 1, Partner: "p-1", State: domain.TaskStateFulfilled, Amount: 20, TimelockEndTime: unlock},
		{ID: 2, Partner: "gone", State: domain.TaskStateBurned, Amount: 30, TimelockEndTime: unlock},
	}
	return snap
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Partner and Task Shapes",
			contains: []string{
				"graph LR",
				`partner_p_1(("p-1"))`,
				`task_0["#0 created <br/> 10 sat"]`,
				"partner_p_1 --> task_1",
			},
		},
		{
			name: "Removed Partner",
			contains: []string{
				`partner_gone[/"gone (removed)"/]`,
				"partner_gone -.-> task_2",
			},
		},
		{
			name: "State Classes Without Overlay",
			contains: []string{
				"class task_0 created;",
				"class task_1 fulfilled;",
				"class task_2 burned;",
			},
			excludes: []string{"class task_1 burnable;"},
		},
		{
			name:    "Overlay Before Timelock",
			overlay: &graph.Overlay{Now: unlock.Add(-time.Second)},
			contains: []string{
				"class task_1 fulfilled;",
			},
		},
		{
			name:    "Overlay At Timelock",
			overlay: &graph.Overlay{Now: unlock},
			contains: []string{
				"class task_1 burnable;",
				"class task_2 burned;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(snapshot(), tt.overlay)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("GenerateMermaid() missing %q\nGot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("GenerateMermaid() unexpectedly contains %q", s)
				}
			}
		})
	}
}

func TestGenerateMermaid_Empty(t *testing.T) {
	got := graph.GenerateMermaid(domain.NewSnapshot(), nil)
	if got != "graph LR\n" {
		t.Errorf("GenerateMermaid() = %q, want only the header", got)
	}
}
