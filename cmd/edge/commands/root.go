package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "edge",
	Short: "edgeforge - edge discovery pipeline",
	Long: `edgeforge Unified CLI

Generates intraday strategy candidates, grinds them through the
validation gauntlet, and maintains the approved-edge manifest.

Usage:
  go run ./cmd/edge [command]

Examples:
  go run ./cmd/edge generate --symbol ES
  go run ./cmd/edge validate --from 2023-01-01 --to 2024-12-31
  go run ./cmd/edge approve 42 --by hmoon
  go run ./cmd/edge serve`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
