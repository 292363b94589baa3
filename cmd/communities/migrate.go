package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newMigrateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, os.LookupEnv)
			if err != nil {
				return err
			}
			provider, err := newLoggerProvider(cmd.ErrOrStderr(), flags)
			if err != nil {
				return err
			}
			logger := provider.GetLogger("migrate")

			client, err := openPersistence(ctx, cfg.Persistence, true)
			if err != nil {
				logger.Error("migrations failed", "driver", cfg.Persistence.Driver, "error", err.Error())
				return err
			}
			defer func() { _ = client.Close() }()
			logger.Info("migrations applied", "driver", cfg.Persistence.Driver)
			return nil
		},
	}
}
