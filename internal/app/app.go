package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/burstreply-backend/internal/data/db"
	"github.com/yungbote/burstreply-backend/internal/http"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
	"github.com/yungbote/burstreply-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Handlers Handlers
	Metrics  *observability.Metrics
	Server   *http.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log, cfg.MetricsEnabled, cfg.MetricsScrapeInterval)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := clients.DB.AutoMigrateAll(); err != nil {
			clients.Close()
			_ = otelShutdown(ctx)
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	reposet := wireRepos(clients.DB.DB(), log)
	serviceset, err := wireServices(log, cfg, clients, reposet)
	if err != nil {
		clients.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}
	handlerset := wireHandlers(log, clients, serviceset)
	server := http.NewServer(":"+cfg.Port, routerConfig(log, cfg, handlerset, metrics))

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Handlers:     handlerset,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Serve runs the HTTP server and the background loops until ctx is cancelled or one
// of them fails.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	a.startBackground(gctx)

	if a.Services.SchedulerBy == SchedulerTemporal && a.Cfg.EmbedTemporalWorker {
		runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cfg.Temporal, a.Services.Registry, a.Cfg.WorkerConcurrency)
		if err != nil {
			return err
		}
		if err := runner.Start(gctx); err != nil {
			return fmt.Errorf("start embedded temporal worker: %w", err)
		}
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "port", a.Cfg.Port, "scheduler", a.Services.SchedulerBy)
		return a.Server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if a.Services.LocalWorker != nil {
			if err := a.Services.LocalWorker.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("job worker stop: %w", err))
			}
		}
		a.Log.Info("HTTP server stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}

// RunWorker polls Temporal and executes aggregation jobs until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Clients.Temporal == nil {
		return fmt.Errorf("worker requires TEMPORAL_ADDRESS")
	}
	if a.Clients.Memory != nil {
		return fmt.Errorf("worker requires REDIS_ADDR; the in-memory store is not shared across processes")
	}
	runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cfg.Temporal, a.Services.Registry, a.Cfg.WorkerConcurrency)
	if err != nil {
		return err
	}
	a.startBackground(ctx)
	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.Log.Info("Temporal worker stopping")
	return nil
}

func (a *App) startBackground(ctx context.Context) {
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartDBCollector(ctx, a.Log, a.Clients.DB.DB())
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Store)

	if mem := a.Clients.Memory; mem != nil && a.Cfg.MemorySweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(a.Cfg.MemorySweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := mem.Sweep(); n > 0 {
						a.Log.Debug("Expired ephemeral keys swept", "count", n)
					}
				}
			}
		}()
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}

// Migrate connects to the configured database and applies the schema.
func Migrate(log *logger.Logger, cfg Config) error {
	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer dbs.Close()
	return dbs.AutoMigrateAll()
}
