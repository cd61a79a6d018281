package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/internal/cli"
	"github.com/liqingnz/btc-timelock-contracts/internal/config"
	"github.com/liqingnz/btc-timelock-contracts/internal/presentation/graph"
	"github.com/liqingnz/btc-timelock-contracts/internal/presentation/tui"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/redis"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print a report of the stored ledger",
	Long: `Loads the ledger snapshot from the configured store without starting the engine
and prints a markdown report, styled when stdout is a terminal.
With --graph it prints a Mermaid flowchart of partners and tasks instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var client *backend.Client
		if cfg.Store.Backend == config.BackendRedis {
			client = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			defer client.Close()
		}
		store, closer, err := cli.OpenStore(cfg, client)
		if err != nil {
			return err
		}
		if closer != nil {
			defer closer()
		}

		snap, err := store.Load(cmd.Context())
		if errors.Is(err, domain.ErrLedgerNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No ledger has been stored yet.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}

		now := time.Now()
		if asGraph, _ := cmd.Flags().GetBool("graph"); asGraph {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(snap, &graph.Overlay{Now: now}))
			return nil
		}

		out, err := tui.RendererFor(cmd.OutOrStdout())(tui.LedgerReport(snap, now))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("graph", false, "Output a Mermaid diagram instead of the report")
}
