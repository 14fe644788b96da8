package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/burstreply-backend/internal/app"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Error("App init failed", "error", err)
		log.Sync()
		return err
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		log.Error("Server stopped with error", "error", err)
		return err
	}
	return nil
}
