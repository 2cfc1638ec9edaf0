// Package main provides the entry point for the a11yscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for a11yscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "a11yscan",
		Short: "Accessibility test matrix for web pages",
		Long: `a11yscan evaluates web pages for accessibility across a test matrix of
rendering engines and viewport sizes. Every target page is checked under
every engine/viewport combination, so issues that only appear in a
mobile-sized Chrome or a desktop-sized Firefox have nowhere to hide.

Each matrix cell runs a set of probes (markup structure, viewport
configuration, language declarations, external checkers) against a fresh
rendering session. Failures are isolated per cell: one crashed browser or
one misbehaving probe never takes down the run.

Results are rolled up per target and saved for run-over-run comparison.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
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
