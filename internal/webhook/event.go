package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	EventNewConversation   EventType = "NEW_CONVERSATION"
	EventNewMessage        EventType = "NEW_MESSAGE"
	EventCloseConversation EventType = "CLOSE_CONVERSATION"
)

// Payload is the raw webhook body as sent by the chat provider.
type Payload struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type EventData struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
}

// Event is a validated payload. Timestamp is always UTC.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      EventData
}

// ValidationError marks a payload the router refuses before touching any state.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Parse validates p and returns the event it describes.
func Parse(p Payload) (*Event, error) {
	typ := strings.TrimSpace(p.Type)
	if typ == "" {
		return nil, invalid("invalid payload: missing type")
	}
	ts, err := ParseTimestamp(p.Timestamp)
	if err != nil {
		return nil, invalid("invalid payload: %v", err)
	}
	raw := bytes.TrimSpace(p.Data)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, invalid("invalid payload: data must be an object")
	}
	var data EventData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, invalid("invalid payload: data: %v", err)
	}
	data.ID = strings.TrimSpace(data.ID)
	data.ConversationID = strings.TrimSpace(data.ConversationID)

	ev := &Event{Type: EventType(typ), Timestamp: ts, Data: data}
	switch ev.Type {
	case EventNewConversation, EventCloseConversation:
		if data.ID == "" {
			return nil, invalid("missing conversation id")
		}
	case EventNewMessage:
		if data.ID == "" || data.ConversationID == "" || data.Content == "" {
			return nil, invalid("invalid message data: id, content and conversation_id are required")
		}
	default:
		return nil, invalid("unknown event type %q", typ)
	}
	return ev, nil
}

// Layouts accepted for timestamps without an explicit offset; those are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts RFC 3339 and offset-less ISO 8601 values and returns UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
