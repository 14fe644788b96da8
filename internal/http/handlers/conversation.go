package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/burstreply-backend/internal/http/response"
	"github.com/yungbote/burstreply-backend/internal/platform/dbctx"
	"github.com/yungbote/burstreply-backend/internal/services"
)

type ConversationHandler struct {
	conversations services.ConversationService
}

func NewConversationHandler(conversations services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// GET /api/conversations/:id
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.conversations.Get(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conversation": conv})
}

// DELETE /api/conversations/:id
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	if err := h.conversations.Delete(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id")); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
