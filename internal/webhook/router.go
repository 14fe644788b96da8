package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yungbote/burstreply-backend/internal/modules/grouping"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/clock"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

// Coordinator is the set of transitions the router drives.
type Coordinator interface {
	OnConversationCreated(ctx context.Context, conversationID string, now time.Time) (grouping.Outcome, error)
	OnMessage(ctx context.Context, conversationID, messageID, content string, eventTime time.Time) (grouping.Outcome, error)
	OnConversationClosed(ctx context.Context, conversationID string) (grouping.Outcome, error)
}

type Result struct {
	Status  int
	Message string
	Outcome grouping.Outcome
}

type Router struct {
	log   *logger.Logger
	coord Coordinator
	clock clock.Clock
}

func NewRouter(log *logger.Logger, coord Coordinator, clk clock.Clock) *Router {
	if clk == nil {
		clk = clock.System()
	}
	return &Router{log: log.With("component", "WebhookRouter"), coord: coord, clock: clk}
}

// Dispatch runs ev through the matching transition. A non-nil error means the
// transition failed for reasons unrelated to the event itself.
func (r *Router) Dispatch(ctx context.Context, ev *Event) (Result, error) {
	var (
		out grouping.Outcome
		err error
	)
	switch ev.Type {
	case EventNewConversation:
		out, err = r.coord.OnConversationCreated(ctx, ev.Data.ID, r.clock.Now())
	case EventNewMessage:
		out, err = r.coord.OnMessage(ctx, ev.Data.ConversationID, ev.Data.ID, ev.Data.Content, ev.Timestamp)
	case EventCloseConversation:
		out, err = r.coord.OnConversationClosed(ctx, ev.Data.ID)
	default:
		return Result{}, invalid("unknown event type %q", ev.Type)
	}
	if err != nil {
		observability.Current().IncWebhookEvent(string(ev.Type), "error")
		return Result{}, fmt.Errorf("%s: %w", ev.Type, err)
	}
	observability.Current().IncWebhookEvent(string(ev.Type), string(out.Status))

	res := Result{Outcome: out, Status: statusFor(ev.Type, out), Message: messageFor(ev.Type, out)}
	if out.Rejected() {
		r.log.Info("Webhook event rejected", "type", ev.Type, "id", ev.Data.ID, "reason", out.Reason())
	}
	return res, nil
}

func statusFor(t EventType, out grouping.Outcome) int {
	switch out.Status {
	case grouping.StatusBuffered:
		return http.StatusAccepted
	case grouping.StatusRejected:
		return StatusForKind(out.Err.Kind)
	}
	switch t {
	case EventNewConversation:
		return http.StatusCreated
	case EventNewMessage:
		return http.StatusAccepted
	default:
		return http.StatusOK
	}
}

// StatusForKind maps a rejection kind to its HTTP status.
func StatusForKind(k grouping.Kind) int {
	switch k {
	case grouping.KindValidation:
		return http.StatusBadRequest
	case grouping.KindNotFound:
		return http.StatusNotFound
	case grouping.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(t EventType, out grouping.Outcome) string {
	switch out.Status {
	case grouping.StatusRejected:
		return out.Reason()
	case grouping.StatusBuffered:
		return "Conversation not found yet, message buffered"
	}
	switch t {
	case EventNewConversation:
		return "Conversation created"
	case EventNewMessage:
		return "Message received"
	default:
		return "Conversation closed"
	}
}
