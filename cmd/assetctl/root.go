package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/assettrack/internal/config"
	"github.com/JonMunkholm/assettrack/internal/logging"
)

func newRootCmd() *cobra.Command {
	var logCfg config.LoggingConfig

	root := &cobra.Command{
		Use:           "assetctl",
		Short:         "Asset tracking maintenance CLI",
		Long:          "Command line tools for migrating, importing into and issuing tokens for the asset tracking service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadInto(&logCfg); err != nil {
				return err
			}
			// Logs go to stderr so command output stays machine-readable.
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logCfg.Level, logCfg.Format))
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(),
		newImportCmd(),
		newTokenCmd(),
	)
	return root
}
