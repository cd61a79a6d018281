package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func TestLedgerReport(t *testing.T) {
	snap := domain.NewSnapshot()
	snap.Partners = []domain.PartnerID{"p1"}
	snap.PartnerTasks["p1"] = []uint64{0, 1, 2}
	snap.Roles[domain.RoleAdmin] = []domain.Identity{"owner", "ops"}
	snap.Tasks = []domain.Task{
		{ID: 0, Partner: "p1", State: domain.TaskStateCreated, Amount: 5, TimelockEndTime: now, Deadline: now},
		{ID: 1, Partner: "p1", State: domain.TaskStateFulfilled, Amount: 7, TimelockEndTime: now.Add(time.Hour), Deadline: now, TxHash: domain.TxHash{0xaa}, TxOut: 3},
		{ID: 2, Partner: "p1", State: domain.TaskStateFulfilled, Amount: 11, TimelockEndTime: now, Deadline: now},
	}

	got := LedgerReport(snap, now)

	assert.Contains(t, got, "| Partners | 1 |")
	assert.Contains(t, got, "| fulfilled | 2 |")
	assert.Contains(t, got, "| Locked amount | 7 |")
	assert.Contains(t, got, "| Burnable amount | 11 |")
	assert.Contains(t, got, "| 0 | `p1` | 3 |")
	assert.Contains(t, got, "fulfilled (burnable)")
	assert.Contains(t, got, "`"+domain.TxHash{0xaa}.String()+":3`")
	assert.Contains(t, got, "- **admin**: `owner`, `ops`")
	assert.Equal(t, 1, strings.Count(got, "(burnable)"))
}

func TestLedgerReport_Empty(t *testing.T) {
	got := LedgerReport(domain.NewSnapshot(), now)
	assert.Contains(t, got, "_No registered partners._")
	assert.Contains(t, got, "_No tasks._")
	assert.Contains(t, got, "_No role members._")
}

func TestRendererFor_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	out, err := RendererFor(&buf)("# Title")
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)
}

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	out, err := r("**bold**")
	require.NoError(t, err)
	assert.Contains(t, out, "bold")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "1.2.3")
}
