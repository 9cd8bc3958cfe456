// Package main implements roguectl, a small read-only operator CLI for
// introspecting a running rouge process's diagnostics and control
// endpoints from the command line.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roguectl",
	Short: "roguectl inspects a running rouge process over its diag and control endpoints.",
	Long: `roguectl is a read-only operator CLI: it talks to a running rouge ` +
		`process's diagnostics HTTP surface and control text protocol to list ` +
		`pool/transaction/block counters, read a named variable, or watch ` +
		`publish notifications. It never parses a configuration file — all ` +
		`target addresses are passed as flags.`,
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
