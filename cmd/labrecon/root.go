package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/infrastructure"
)

func newRootCommand(version string) *cobra.Command {
	var (
		verbose bool
		logging config.LoggingConfig
	)

	cmd := &cobra.Command{
		Use:           "labrecon",
		Short:         "Reconcile laboratory billing extracts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Level = "warn"
			if verbose {
				logging.Level = "debug"
			}
			return logging.Finalize()
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine stages to stderr")
	cmd.PersistentFlags().StringVar(&logging.Format, "log-format", config.LogFormatText, "Log format: text or json")

	logger := func(cmd *cobra.Command) *slog.Logger {
		return infrastructure.NewLogger(&logging, cmd.ErrOrStderr())
	}

	cmd.AddCommand(
		newReconcileCommand(logger),
		newVersionCommand(version),
	)
	return cmd
}
