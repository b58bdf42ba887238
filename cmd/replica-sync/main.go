/*
replica-sync is the command-line entry point: a cobra root command with
two subcommands, `serve` (the long-running daemon) and `backfill` (a
one-shot transaction history load). Grounded on cuemby/warren's
cmd/warren/main.go -- a single rootCmd, persistent flags for cross-cutting
concerns, subcommands added in init() -- scaled down from warren's dozen
subcommands to the two this service actually needs.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "replica-sync",
	Short: "One-way incremental replication from a relational source into a document store",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file (optional; defaults apply if omitted)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backfillCmd)
}
