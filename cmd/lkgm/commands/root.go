package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lkgm",
		Short: "LKGM - build fleet manifest coordinator",
		Long: `lkgm coordinates a fleet of build agents through a shared manifest
repository. Agents agree on candidate manifest versions, report pass/fail
through marker files, and promote fully green candidates to the canonical
LKGM (last known good manifest) pointer.

The shared git repository is the only coordination medium: the push
accept/reject decision of the remote is the sole synchronization primitive.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lkgm.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newLatestCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newPromoteCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newMergeStatusCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
