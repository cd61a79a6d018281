package main

import (
	"fmt"
	"log"
	"os"

	"github.com/liqingnz/btc-timelock-contracts/internal/cli"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server over stdio",
	Long: `Starts the engine as an MCP server on standard input and output.
Agents can query tasks, partners and events, and burn tasks whose timelock has passed.
Use serve with mcp.enabled for the SSE transport.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		// Stdout carries JSON-RPC.
		log.SetOutput(os.Stderr)

		rt, err := cli.Build(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("error initializing engine: %w", err)
		}
		defer rt.Close()

		logger.Info("Starting MCP server (stdio)")
		if err := mcp.NewServer(rt.Engine, mcp.WithLogger(logger)).ServeStdio(); err != nil {
			return fmt.Errorf("MCP server execution failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
