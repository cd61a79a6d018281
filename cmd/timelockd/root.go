package main

import (
	"fmt"
	"os"

	"github.com/liqingnz/btc-timelock-contracts/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "timelockd",
	Short: "timelockd runs the BTC timelock bridge engine",
	Long: `timelockd tracks bridging tasks from creation through deposit verification
to the timelocked burn, and keeps partner vault balances in step with them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", os.Getenv("TIMELOCK_CONFIG"), "Path to the YAML configuration file")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
