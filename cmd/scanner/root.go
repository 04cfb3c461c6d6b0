package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the scanner.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanner",
		Short: "Parallel Amazon arbitrage-research scraper",
		Long: `scanner fetches product pages concurrently through a headless render
backend, applying shared rate limits, bounded retries, circuit breaking and
per-session browser fingerprints.

Run "scanner serve" to expose the HTTP API with live progress polling, or
"scanner scan" for a one-shot batch from the command line.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
