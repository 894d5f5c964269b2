// Package cli wires cmd/dendrite's cobra commands, grounded on the teacher's
// minimal RootCmd() pattern (cmd/compozy.go) plus its flag-driven logger
// bootstrap (pkg/logger/setup.go): a root command carries persistent
// logging flags, and each subcommand pulls its own dependencies together
// from pkg/config.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/AxiomOrient/Dendrite/pkg/logger"
)

var (
	logLevel string
	logJSON  bool
)

// RootCmd builds the dendrite root command.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dendrite",
		Short: "Normalize and chunk documents for retrieval-augmented generation",
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	root.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		logger.SetDefault(logger.New(logger.Config{
			Level: logger.Level(logLevel),
			JSON:  logJSON,
		}))
	}

	root.AddCommand(ProcessCmd())
	return root
}
