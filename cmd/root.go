package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/burstreply-backend/internal/app"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "burstreply",
	Short:        "Webhook burst debounce and aggregated reply service",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: $CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("burstreply %s\n", Version)
		},
	}
}

// bootstrap loads config and builds the logger every subcommand shares.
func bootstrap() (app.Config, *logger.Logger, error) {
	cfg, err := app.LoadConfig(cfgFile)
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Version == "dev" {
		cfg.Version = Version
		cfg.Otel.Version = Version
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
