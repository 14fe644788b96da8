package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/burstreply-backend/internal/app"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker that executes delayed aggregation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			// The worker only consumes jobs; it never needs the in-process scheduler.
			cfg.Scheduler = app.SchedulerTemporal
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, log, cfg)
			if err != nil {
				log.Error("Worker init failed", "error", err)
				log.Sync()
				return err
			}
			defer a.Close()
			return a.RunWorker(ctx)
		},
	}
}
