// Package cli implements the taskprobe command-line interface using Cobra.
// Each subcommand is one leg of the harness (submit, verify, serve).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskprobe",
	Short: "taskprobe — load and verify a task-processing service",
	Long: `taskprobe is a test harness for task-processing services.

submit floods the service with randomized task submissions, verify checks
worker logs for exactly-once execution, and serve runs a local stand-in
service so the whole loop can be exercised without the real system.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
