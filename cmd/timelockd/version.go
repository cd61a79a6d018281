package main

import (
	"fmt"
	"strings"

	timelock "github.com/liqingnz/btc-timelock-contracts"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of timelockd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "timelockd version %s\n", strings.TrimSpace(timelock.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
