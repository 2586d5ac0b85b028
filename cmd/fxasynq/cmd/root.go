// Package cmd implements the fxasynq command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fxasynq",
	Short: "Inspect the task queues used by an fxasynq application",
	Long: `fxasynq is a small companion CLI for applications built on the fxasynq
integration. It reads the same configuration (fxasynq.yaml, FXASYNQ_* env
variables) and talks to the configured broker.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
