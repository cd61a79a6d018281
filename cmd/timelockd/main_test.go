package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	timelock "github.com/liqingnz/btc-timelock-contracts"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/file"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func writeConfig(t *testing.T, ledgerPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timelock.yaml")
	body := fmt.Sprintf("owner: owner\nstore:\n  backend: file\n  path: %s\n", ledgerPath)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out := run(t, "version")
	assert.Contains(t, out, "timelockd version "+timelock.Version)
}

func TestInspectCommand(t *testing.T) {
	ledgerPath := filepath.Join(t.TempDir(), "ledger.json")
	cfgPath := writeConfig(t, ledgerPath)

	out := run(t, "inspect", "--config", cfgPath, "--graph=false")
	assert.Contains(t, out, "No ledger has been stored yet.")

	snap := domain.NewSnapshot()
	snap.Partners = []domain.PartnerID{"p1"}
	snap.Tasks = []domain.Task{{ID: 0, Partner: "p1", State: domain.TaskStateCreated, Amount: 9}}
	snap.PartnerTasks["p1"] = []uint64{0}
	require.NoError(t, file.New(ledgerPath).Save(context.Background(), snap))

	out = run(t, "inspect", "--config", cfgPath, "--graph=false")
	assert.Contains(t, out, "# Timelock ledger")
	assert.Contains(t, out, "| 0 | `p1` | 1 |")

	out = run(t, "inspect", "--config", cfgPath, "--graph")
	assert.Contains(t, out, "partner_p1 --> task_0")
}
