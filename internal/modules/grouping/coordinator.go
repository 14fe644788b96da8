package grouping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/burstreply-backend/internal/data/repos"
	types "github.com/yungbote/burstreply-backend/internal/domain"
	"github.com/yungbote/burstreply-backend/internal/ephemeral"
	jobrt "github.com/yungbote/burstreply-backend/internal/jobs/runtime"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/clock"
	"github.com/yungbote/burstreply-backend/internal/platform/dbctx"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

type Deps struct {
	Log           *logger.Logger
	Store         ephemeral.Store
	Scheduler     jobrt.Scheduler
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Clock         clock.Clock
	Config        Config
}

// Coordinator owns the debounce protocol: buffering early messages, growing the
// per-conversation group and scheduling one aggregation job per burst.
type Coordinator struct {
	log           *logger.Logger
	clock         clock.Clock
	cfg           Config
	scheduler     jobrt.Scheduler
	conversations repos.ConversationRepo
	messages      repos.MessageRepo

	buffer *PendingBuffer
	groups *GroupTracker
	lock   *ScheduleLock
}

func New(deps Deps) (*Coordinator, error) {
	if deps.Log == nil || deps.Store == nil || deps.Scheduler == nil || deps.Conversations == nil || deps.Messages == nil {
		return nil, fmt.Errorf("grouping: missing deps")
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.System()
	}
	log := deps.Log.With("component", "GroupingCoordinator")
	return &Coordinator{
		log:           log,
		clock:         clk,
		cfg:           deps.Config,
		scheduler:     deps.Scheduler,
		conversations: deps.Conversations,
		messages:      deps.Messages,
		buffer:        NewPendingBuffer(deps.Log, deps.Store, deps.Config),
		groups:        NewGroupTracker(deps.Log, deps.Store, deps.Config),
		lock:          NewScheduleLock(deps.Store, deps.Config),
	}, nil
}

func (c *Coordinator) Buffer() *PendingBuffer { return c.buffer }
func (c *Coordinator) Groups() *GroupTracker  { return c.groups }
func (c *Coordinator) Lock() *ScheduleLock    { return c.lock }

// OnConversationCreated persists the conversation and promotes whatever was buffered
// for it within the freshness window of now.
func (c *Coordinator) OnConversationCreated(ctx context.Context, conversationID string, now time.Time) (out Outcome, err error) {
	ctx, span := startSpan(ctx, "grouping.OnConversationCreated", conversationID)
	defer func() { endSpan(span, out, err) }()

	if strings.TrimSpace(conversationID) == "" {
		return rejected(KindValidation, "conversation id is required", nil), nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	row := &types.Conversation{ID: conversationID, Status: types.ConversationOpen, CreatedAt: now.UTC(), UpdatedAt: now.UTC()}
	if err := c.conversations.Create(dbc, row); err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return rejected(KindConflict, "conversation already exists", err), nil
		}
		return Outcome{}, fmt.Errorf("create conversation %s: %w", conversationID, err)
	}

	res, err := c.buffer.Reconcile(ctx, conversationID, now, func(ctx context.Context, msg BufferedMessage) error {
		out, err := c.ingest(ctx, conversationID, msg.MessageID, msg.Content, msg.EventTime)
		if err != nil {
			return err
		}
		if out.Rejected() {
			return out.Err
		}
		return nil
	})
	if err != nil {
		// The conversation exists; buffered entries expire on their own.
		c.log.Error("Buffer reconcile failed", "conversation_id", conversationID, "error", err)
	}
	span.SetAttributes(
		attribute.Int("buffer.promoted", res.Promoted),
		attribute.Int("buffer.stale", res.Stale),
	)
	c.log.Info("Conversation created",
		"conversation_id", conversationID,
		"promoted", res.Promoted,
		"stale", res.Stale,
		"failed", res.Failed,
	)
	return accepted(), nil
}

// OnMessage records an inbound message. Messages for unknown conversations are
// buffered; messages for closed ones are rejected without touching any state.
func (c *Coordinator) OnMessage(ctx context.Context, conversationID, messageID, content string, eventTime time.Time) (out Outcome, err error) {
	ctx, span := startSpan(ctx, "grouping.OnMessage", conversationID)
	span.SetAttributes(attribute.String("message.id", messageID))
	defer func() { endSpan(span, out, err) }()

	if strings.TrimSpace(conversationID) == "" || strings.TrimSpace(messageID) == "" {
		return rejected(KindValidation, "conversation id and message id are required", nil), nil
	}

	conv, err := c.conversations.Get(dbctx.Context{Ctx: ctx}, conversationID)
	switch {
	case errors.Is(err, repos.ErrNotFound):
		msg := BufferedMessage{
			ConversationID: conversationID,
			MessageID:      messageID,
			Content:        content,
			ReceivedAt:     c.clock.Now(),
			EventTime:      eventTime.UTC(),
		}
		if err := c.buffer.Stage(ctx, msg); err != nil {
			return Outcome{}, err
		}
		c.log.Debug("Message buffered", "conversation_id", conversationID, "message_id", messageID)
		return buffered(), nil
	case err != nil:
		return Outcome{}, fmt.Errorf("load conversation %s: %w", conversationID, err)
	case !conv.IsOpen():
		return rejected(KindConflict, "conversation is closed", nil), nil
	}
	return c.ingest(ctx, conversationID, messageID, content, eventTime)
}

// ingest persists an inbound message of an open conversation, adds it to the
// current burst and schedules the aggregation job if none is pending.
func (c *Coordinator) ingest(ctx context.Context, conversationID, messageID, content string, eventTime time.Time) (Outcome, error) {
	row := &types.Message{
		ID:             messageID,
		ConversationID: conversationID,
		Direction:      types.MessageInbound,
		Content:        content,
		Timestamp:      eventTime.UTC(),
		CreatedAt:      c.clock.Now(),
	}
	if err := c.messages.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return rejected(KindConflict, "message already exists", err), nil
		}
		return Outcome{}, fmt.Errorf("create message %s: %w", messageID, err)
	}

	size, err := c.groups.Append(ctx, conversationID, messageID)
	if err != nil {
		return Outcome{}, err
	}
	acquired, err := c.lock.TryAcquire(ctx, conversationID)
	if err != nil {
		return Outcome{}, err
	}
	if !acquired {
		c.log.Debug("Message joined pending burst", "conversation_id", conversationID, "message_id", messageID, "group_size", size)
		return accepted(), nil
	}

	args := jobrt.Args{ArgConversationID: conversationID}
	if err := c.scheduler.Schedule(ctx, JobType, args, c.cfg.Delay); err != nil {
		if relErr := c.lock.Release(ctx, conversationID); relErr != nil {
			c.log.Warn("Schedule lock release failed", "conversation_id", conversationID, "error", relErr)
		}
		return Outcome{}, fmt.Errorf("schedule aggregation for %s: %w", conversationID, err)
	}
	c.log.Debug("Aggregation scheduled", "conversation_id", conversationID, "delay", c.cfg.Delay.String())
	return accepted(), nil
}

// OnConversationClosed moves an open conversation to CLOSED. Pending jobs are left
// alone; they observe the status and do nothing.
func (c *Coordinator) OnConversationClosed(ctx context.Context, conversationID string) (out Outcome, err error) {
	ctx, span := startSpan(ctx, "grouping.OnConversationClosed", conversationID)
	defer func() { endSpan(span, out, err) }()

	if strings.TrimSpace(conversationID) == "" {
		return rejected(KindValidation, "conversation id is required", nil), nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	changed, err := c.conversations.TransitionStatus(dbc, conversationID, types.ConversationOpen, types.ConversationClosed)
	if err != nil {
		return Outcome{}, fmt.Errorf("close conversation %s: %w", conversationID, err)
	}
	if changed {
		c.log.Info("Conversation closed", "conversation_id", conversationID)
		return accepted(), nil
	}
	if _, err := c.conversations.Get(dbc, conversationID); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return rejected(KindNotFound, "conversation not found", err), nil
		}
		return Outcome{}, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	return rejected(KindConflict, "conversation already closed", nil), nil
}

func startSpan(ctx context.Context, name, conversationID string) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, name, trace.WithAttributes(attribute.String("conversation.id", conversationID)))
}

func endSpan(span trace.Span, out Outcome, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if out.Status != "" {
		span.SetAttributes(attribute.String("outcome", string(out.Status)))
		if out.Err != nil {
			span.SetAttributes(attribute.String("outcome.kind", string(out.Err.Kind)))
		}
	}
	span.End()
}

// Forget drops the pending group and schedule lock of a conversation that no longer exists.
func (c *Coordinator) Forget(ctx context.Context, conversationID string) error {
	_, err := c.groups.ReadAndClear(ctx, conversationID)
	return err
}
