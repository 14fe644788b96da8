package grouping

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/burstreply-backend/internal/ephemeral"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

// GroupTracker keeps the ids of the current burst per conversation.
type GroupTracker struct {
	log   *logger.Logger
	store ephemeral.Store
	ttl   time.Duration
}

func NewGroupTracker(log *logger.Logger, store ephemeral.Store, cfg Config) *GroupTracker {
	return &GroupTracker{log: log.With("component", "GroupTracker"), store: store, ttl: cfg.GroupTTL}
}

// Append adds messageID to the group and resets its TTL atomically. It returns the
// group size after the append.
func (g *GroupTracker) Append(ctx context.Context, conversationID, messageID string) (int64, error) {
	n, err := g.store.Append(ctx, groupKey(conversationID), messageID, g.ttl)
	if err != nil {
		return 0, fmt.Errorf("append %s to group %s: %w", messageID, conversationID, err)
	}
	return n, nil
}

// ReadAndClear takes the group and drops the schedule lock with it. Absent state
// yields an empty slice. Repeated ids keep their first position.
//
// The lock goes first: a message appended after the drain must be able to
// take the lock and schedule its own job.
func (g *GroupTracker) ReadAndClear(ctx context.Context, conversationID string) ([]string, error) {
	if err := g.store.Delete(ctx, lockKey(conversationID)); err != nil {
		g.log.Warn("Schedule lock delete failed; lock will expire by TTL", "conversation_id", conversationID, "error", err)
	}
	raw, err := g.store.Drain(ctx, groupKey(conversationID))
	if err != nil {
		return nil, fmt.Errorf("drain group %s: %w", conversationID, err)
	}

	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
