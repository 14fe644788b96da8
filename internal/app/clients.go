package app

import (
	"context"
	"fmt"
	"strings"

	temporalsdkclient "go.temporal.io/sdk/client"

	redisclient "github.com/yungbote/burstreply-backend/internal/clients/redis"
	"github.com/yungbote/burstreply-backend/internal/data/db"
	"github.com/yungbote/burstreply-backend/internal/ephemeral"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
	"github.com/yungbote/burstreply-backend/internal/temporalx"
)

type Clients struct {
	DB       *db.Service
	Store    ephemeral.Store
	Memory   *ephemeral.Memory
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		return Clients{}, fmt.Errorf("init database: %w", err)
	}
	out.DB = dbs

	// Redis when configured, otherwise a process-local store.
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		store, err := redisclient.NewStore(log, cfg.Redis)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis store: %w", err)
		}
		out.Store = store
	} else {
		log.Warn("REDIS_ADDR not set; using in-memory ephemeral store (single process only)")
		out.Memory = ephemeral.NewMemory(nil)
		out.Store = out.Memory
	}

	if cfg.Scheduler != SchedulerLocal {
		tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
		switch {
		case err != nil && cfg.Scheduler == SchedulerAuto:
			log.Warn("Temporal unreachable; falling back to in-process scheduler", "address", cfg.Temporal.Address, "error", err)
		case err != nil:
			out.Close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		default:
			out.Temporal = tc
		}
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
