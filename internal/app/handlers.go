package app

import (
	"context"

	"github.com/yungbote/burstreply-backend/internal/http"
	httpH "github.com/yungbote/burstreply-backend/internal/http/handlers"
	httpMW "github.com/yungbote/burstreply-backend/internal/http/middleware"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/clock"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
	"github.com/yungbote/burstreply-backend/internal/webhook"
)

type Handlers struct {
	Health       *httpH.HealthHandler
	Webhook      *httpH.WebhookHandler
	Conversation *httpH.ConversationHandler
}

func wireHandlers(log *logger.Logger, clients Clients, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Check{
		"ephemeral_store": clients.Store.Ping,
	}
	if clients.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := clients.DB.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	return Handlers{
		Health:       httpH.NewHealthHandler(checks),
		Webhook:      httpH.NewWebhookHandler(log, webhook.NewRouter(log, serviceset.Coordinator, clock.System())),
		Conversation: httpH.NewConversationHandler(serviceset.Conversation),
	}
}

func routerConfig(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) http.RouterConfig {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		ServiceName:         serviceName,
		CORSOrigins:         cfg.CORSOrigins,
		WebhookLimiter:      httpMW.NewRateLimiter(cfg.WebhookRateLimitRPS, cfg.WebhookRateLimitBurst),
		WebhookHandler:      handlers.Webhook,
		ConversationHandler: handlers.Conversation,
		HealthHandler:       handlers.Health,
	}
}
