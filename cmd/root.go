// Package cmd defines the CLI commands for the bosswatch executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bosswatch",
		Short: "Watches a browser game's world boss page and raises alerts",
		Long: `bosswatch polls the world boss status page of a browser game on a fixed
interval, tracks spawn phase transitions, pushes Telegram notifications
when a boss is approaching or active, and serves a small status dashboard.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./bosswatch.yaml)")
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
