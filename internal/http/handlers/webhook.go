package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/burstreply-backend/internal/http/response"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
	"github.com/yungbote/burstreply-backend/internal/webhook"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev *webhook.Event) (webhook.Result, error)
}

type WebhookHandler struct {
	log    *logger.Logger
	router Dispatcher
}

func NewWebhookHandler(log *logger.Logger, router Dispatcher) *WebhookHandler {
	return &WebhookHandler{log: log.With("handler", "WebhookHandler"), router: router}
}

// POST /webhook
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload webhook.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", errors.New("invalid payload: body must be a JSON object"))
		return
	}
	ev, err := webhook.Parse(payload)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	res, err := h.router.Dispatch(c.Request.Context(), ev)
	if err != nil {
		var ve *webhook.ValidationError
		if errors.As(err, &ve) {
			response.RespondError(c, http.StatusBadRequest, "invalid_payload", ve)
			return
		}
		h.log.Error("Webhook dispatch failed", "type", ev.Type, "id", ev.Data.ID, "error", err)
		_ = c.Error(err)
		response.RespondError(c, http.StatusInternalServerError, "internal_error", errors.New("failed to process event"))
		return
	}

	if res.Outcome.Rejected() {
		response.RespondError(c, res.Status, string(res.Outcome.Err.Kind), errors.New(res.Message))
		return
	}
	c.JSON(res.Status, gin.H{"message": res.Message})
}
