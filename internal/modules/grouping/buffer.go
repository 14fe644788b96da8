package grouping

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/burstreply-backend/internal/ephemeral"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

// BufferedMessage is a message that arrived before its conversation existed.
type BufferedMessage struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Content        string    `json:"content"`
	ReceivedAt     time.Time `json:"received_at"`
	EventTime      time.Time `json:"event_time"`
}

type ReconcileResult struct {
	Promoted int
	Stale    int
	Failed   int
}

// PromoteFunc persists a fresh buffered message and feeds it into its group.
type PromoteFunc func(ctx context.Context, msg BufferedMessage) error

type PendingBuffer struct {
	log   *logger.Logger
	store ephemeral.Store
	ttl   time.Duration
	fresh time.Duration
}

func NewPendingBuffer(log *logger.Logger, store ephemeral.Store, cfg Config) *PendingBuffer {
	return &PendingBuffer{
		log:   log.With("component", "PendingBuffer"),
		store: store,
		ttl:   cfg.BufferTTL,
		fresh: cfg.Freshness,
	}
}

// Stage writes msg under its (conversation, message) key, replacing any earlier entry.
func (b *PendingBuffer) Stage(ctx context.Context, msg BufferedMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode buffered message: %w", err)
	}
	if err := b.store.Set(ctx, bufferKey(msg.ConversationID, msg.MessageID), raw, b.ttl); err != nil {
		return fmt.Errorf("stage message %s: %w", msg.MessageID, err)
	}
	return nil
}

// Reconcile consumes every buffered entry of conversationID. Entries received within
// the freshness window of now are handed to promote in event order; older ones are
// dropped. Each scanned entry is deleted whatever happened to it.
func (b *PendingBuffer) Reconcile(ctx context.Context, conversationID string, now time.Time, promote PromoteFunc) (ReconcileResult, error) {
	var res ReconcileResult
	entries, err := b.store.ScanPrefix(ctx, bufferScanPrefix(conversationID))
	if err != nil {
		return res, fmt.Errorf("scan buffer for %s: %w", conversationID, err)
	}

	fresh := make([]BufferedMessage, 0, len(entries))
	consumed := make([]string, 0, len(entries))
	for _, e := range entries {
		var msg BufferedMessage
		if err := json.Unmarshal(e.Value, &msg); err != nil {
			b.log.Warn("Dropping undecodable buffer entry", "key", e.Key, "error", err)
			consumed = append(consumed, e.Key)
			res.Failed++
			observability.Current().IncReconcile("failed")
			continue
		}
		if msg.ConversationID != conversationID {
			continue
		}
		consumed = append(consumed, e.Key)
		if age := now.Sub(msg.ReceivedAt); age > b.fresh {
			// Deliberate data loss: a message buffered too long before its conversation appeared is not replayed.
			b.log.Warn("Dropping stale buffered message",
				"conversation_id", conversationID,
				"message_id", msg.MessageID,
				"age", age.String(),
			)
			res.Stale++
			observability.Current().IncReconcile("stale")
			continue
		}
		fresh = append(fresh, msg)
	}

	if len(consumed) > 0 {
		if err := b.store.Delete(ctx, consumed...); err != nil {
			b.log.Warn("Buffer cleanup failed; entries will expire by TTL", "conversation_id", conversationID, "error", err)
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		if !fresh[i].EventTime.Equal(fresh[j].EventTime) {
			return fresh[i].EventTime.Before(fresh[j].EventTime)
		}
		return strings.Compare(fresh[i].MessageID, fresh[j].MessageID) < 0
	})
	for _, msg := range fresh {
		if err := promote(ctx, msg); err != nil {
			b.log.Error("Promoting buffered message failed", "conversation_id", conversationID, "message_id", msg.MessageID, "error", err)
			res.Failed++
			observability.Current().IncReconcile("failed")
			continue
		}
		res.Promoted++
		observability.Current().IncReconcile("promoted")
	}
	return res, nil
}
