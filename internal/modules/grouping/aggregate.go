package grouping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/yungbote/burstreply-backend/internal/data/repos"
	types "github.com/yungbote/burstreply-backend/internal/domain"
	jobrt "github.com/yungbote/burstreply-backend/internal/jobs/runtime"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/dbctx"
)

const (
	JobType           = "aggregate_conversation_messages"
	ArgConversationID = "conversation_id"
)

// Reasons an aggregation run produced nothing. None of them is an error.
const (
	SkipConversationMissing = "conversation_missing"
	SkipConversationClosed  = "conversation_closed"
	SkipEmptyGroup          = "empty_group"
	SkipNoMessages          = "no_messages"
)

type AggregateResult struct {
	// Reply is nil when the run was skipped.
	Reply      *types.Message
	SkipReason string
	SourceIDs  []string
}

type replyMetadata struct {
	SourceMessageIDs []string `json:"source_message_ids"`
}

// Aggregate folds the current burst of conversationID into one outbound message.
// Running it again with no new messages in between is a no-op, which makes it safe
// under at-least-once delivery.
func (c *Coordinator) Aggregate(ctx context.Context, conversationID string) (res AggregateResult, err error) {
	ctx, span := startSpan(ctx, "grouping.Aggregate", conversationID)
	start := time.Now()
	defer func() {
		status := "created"
		switch {
		case err != nil:
			status = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case res.Reply == nil:
			status = "skipped"
			span.SetAttributes(attribute.String("skip_reason", res.SkipReason))
		}
		observability.Current().ObserveAggregation(status, len(res.SourceIDs), time.Since(start))
		span.End()
	}()

	dbc := dbctx.Context{Ctx: ctx}
	conv, err := c.conversations.Get(dbc, conversationID)
	if errors.Is(err, repos.ErrNotFound) {
		return c.skip(conversationID, SkipConversationMissing), nil
	}
	if err != nil {
		return res, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	if !conv.IsOpen() {
		return c.skip(conversationID, SkipConversationClosed), nil
	}

	// From here on the group and lock are gone whatever happens next.
	ids, err := c.groups.ReadAndClear(ctx, conversationID)
	if err != nil {
		return res, err
	}
	if len(ids) == 0 {
		return c.skip(conversationID, SkipEmptyGroup), nil
	}

	msgs, err := c.messages.ListInboundByIDs(dbc, conversationID, ids)
	if err != nil {
		return res, fmt.Errorf("load burst messages for %s: %w", conversationID, err)
	}
	if len(msgs) == 0 {
		return c.skip(conversationID, SkipNoMessages), nil
	}

	sourceIDs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		sourceIDs = append(sourceIDs, m.ID)
	}
	meta, err := json.Marshal(replyMetadata{SourceMessageIDs: sourceIDs})
	if err != nil {
		return res, fmt.Errorf("encode reply metadata: %w", err)
	}
	now := c.clock.Now()
	reply := &types.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Direction:      types.MessageOutbound,
		Content:        RenderReply(c.cfg.ReplyHeader, msgs),
		Timestamp:      now,
		Metadata:       datatypes.JSON(meta),
		CreatedAt:      now,
	}
	if err := c.messages.Create(dbc, reply); err != nil {
		return res, fmt.Errorf("create reply for %s: %w", conversationID, err)
	}
	if len(msgs) < len(ids) {
		c.log.Warn("Burst referenced unknown messages",
			"conversation_id", conversationID,
			"requested", len(ids),
			"found", len(msgs),
		)
	}
	c.log.Info("Aggregated reply created",
		"conversation_id", conversationID,
		"reply_id", reply.ID,
		"messages", len(msgs),
	)
	return AggregateResult{Reply: reply, SourceIDs: sourceIDs}, nil
}

func (c *Coordinator) skip(conversationID, reason string) AggregateResult {
	c.log.Info("Aggregation skipped", "conversation_id", conversationID, "reason", reason)
	return AggregateResult{SkipReason: reason}
}

// AggregationJob adapts Aggregate to the job registry.
func (c *Coordinator) AggregationJob() jobrt.Handler {
	return aggregationJob{c: c}
}

type aggregationJob struct{ c *Coordinator }

func (aggregationJob) Type() string { return JobType }

func (j aggregationJob) Run(ctx context.Context, args jobrt.Args) error {
	conversationID := strings.TrimSpace(args[ArgConversationID])
	if conversationID == "" {
		return fmt.Errorf("%s: missing %s", JobType, ArgConversationID)
	}
	_, err := j.c.Aggregate(ctx, conversationID)
	return err
}
