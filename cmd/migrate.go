package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/burstreply-backend/internal/app"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := app.Migrate(log, cfg); err != nil {
				log.Error("Migration failed", "error", err)
				return err
			}
			log.Info("Migration complete", "driver", cfg.DB.Driver)
			return nil
		},
	}
}
