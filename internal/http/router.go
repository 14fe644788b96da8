package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/burstreply-backend/internal/http/handlers"
	httpMW "github.com/yungbote/burstreply-backend/internal/http/middleware"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	// WebhookLimiter throttles POST /webhook per client; nil disables it.
	WebhookLimiter *httpMW.RateLimiter

	WebhookHandler      *httpH.WebhookHandler
	ConversationHandler *httpH.ConversationHandler
	HealthHandler       *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	// Webhook (provider -> us)
	if cfg.WebhookHandler != nil {
		r.POST("/webhook", cfg.WebhookLimiter.Middleware(), cfg.WebhookHandler.Receive)
	}

	api := r.Group("/api")
	{
		if cfg.ConversationHandler != nil {
			api.GET("/conversations/:id", cfg.ConversationHandler.GetConversation)
			api.DELETE("/conversations/:id", cfg.ConversationHandler.DeleteConversation)
		}
	}

	return r
}
