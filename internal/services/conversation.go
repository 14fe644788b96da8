package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/burstreply-backend/internal/data/repos"
	types "github.com/yungbote/burstreply-backend/internal/domain"
	"github.com/yungbote/burstreply-backend/internal/platform/apierr"
	"github.com/yungbote/burstreply-backend/internal/platform/dbctx"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

const detailMessageLimit = 1000

// EphemeralCleaner drops short-lived grouping state for a conversation.
type EphemeralCleaner interface {
	Forget(ctx context.Context, conversationID string) error
}

type ConversationService interface {
	// Get returns the conversation with its messages in event order.
	Get(dbc dbctx.Context, id string) (*types.Conversation, error)
	Delete(dbc dbctx.Context, id string) error
}

type conversationService struct {
	log           *logger.Logger
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	cleaner       EphemeralCleaner
}

func NewConversationService(baseLog *logger.Logger, conversations repos.ConversationRepo, messages repos.MessageRepo, cleaner EphemeralCleaner) ConversationService {
	return &conversationService{
		log:           baseLog.With("service", "ConversationService"),
		conversations: conversations,
		messages:      messages,
		cleaner:       cleaner,
	}
}

func (s *conversationService) Get(dbc dbctx.Context, id string) (*types.Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_conversation_id", fmt.Errorf("conversation id is required"))
	}
	conv, err := s.conversations.Get(dbc, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	msgs, err := s.messages.ListByConversation(dbc, id, detailMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	conv.Messages = make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		conv.Messages = append(conv.Messages, *m)
	}
	return conv, nil
}

// Delete removes the conversation and its messages, then drops any pending burst.
func (s *conversationService) Delete(dbc dbctx.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apierr.New(http.StatusBadRequest, "missing_conversation_id", fmt.Errorf("conversation id is required"))
	}
	if err := s.conversations.Delete(dbc, id); err != nil {
		return mapRepoErr(err)
	}
	if s.cleaner != nil {
		if err := s.cleaner.Forget(dbc.Ctx, id); err != nil {
			s.log.Warn("Ephemeral cleanup after delete failed", "conversation_id", id, "error", err)
		}
	}
	s.log.Info("Conversation deleted", "conversation_id", id)
	return nil
}

func mapRepoErr(err error) error {
	if errors.Is(err, repos.ErrNotFound) {
		return apierr.New(http.StatusNotFound, "conversation_not_found", fmt.Errorf("conversation not found"))
	}
	return err
}
