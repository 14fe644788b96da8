package testutil

import (
	"context"
	"testing"
	"time"

	types "github.com/yungbote/burstreply-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, id string, status string) *types.Conversation {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Conversation{
		ID:        id,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Omit("Messages").Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID string, id string, direction string, ts time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:             id,
		ConversationID: conversationID,
		Direction:      direction,
		Content:        "content " + id,
		Timestamp:      ts.UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}
