package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimestampNormalisesToUTC(t *testing.T) {
	want := time.Date(2025, 2, 21, 10, 20, 41, 349308000, time.UTC)
	for _, raw := range []string{
		"2025-02-21T10:20:41.349308Z",
		"2025-02-21T07:20:41.349308-03:00",
		"2025-02-21T10:20:41.349308",
		"2025-02-21 10:20:41.349308",
	} {
		got, err := ParseTimestamp(raw)
		require.NoError(t, err, raw)
		require.True(t, got.Equal(want), "%s: got %v", raw, got)
		require.Equal(t, time.UTC, got.Location(), raw)
	}

	_, err := ParseTimestamp("yesterday")
	require.Error(t, err)
	_, err = ParseTimestamp("")
	require.Error(t, err)
}

func TestParseValidatesPerType(t *testing.T) {
	ts := "2025-02-21T10:20:41Z"
	cases := []struct {
		name    string
		payload Payload
		ok      bool
	}{
		{"new conversation", Payload{Type: "NEW_CONVERSATION", Timestamp: ts, Data: json.RawMessage(`{"id":"c1"}`)}, true},
		{"new conversation without id", Payload{Type: "NEW_CONVERSATION", Timestamp: ts, Data: json.RawMessage(`{}`)}, false},
		{"message", Payload{Type: "NEW_MESSAGE", Timestamp: ts, Data: json.RawMessage(`{"id":"m1","content":"hi","conversation_id":"c1"}`)}, true},
		{"message without content", Payload{Type: "NEW_MESSAGE", Timestamp: ts, Data: json.RawMessage(`{"id":"m1","conversation_id":"c1"}`)}, false},
		{"close", Payload{Type: "CLOSE_CONVERSATION", Timestamp: ts, Data: json.RawMessage(`{"id":"c1"}`)}, true},
		{"missing type", Payload{Timestamp: ts, Data: json.RawMessage(`{"id":"c1"}`)}, false},
		{"missing timestamp", Payload{Type: "NEW_CONVERSATION", Data: json.RawMessage(`{"id":"c1"}`)}, false},
		{"data not an object", Payload{Type: "NEW_CONVERSATION", Timestamp: ts, Data: json.RawMessage(`["c1"]`)}, false},
		{"data absent", Payload{Type: "NEW_CONVERSATION", Timestamp: ts}, false},
		{"unknown type", Payload{Type: "REOPEN", Timestamp: ts, Data: json.RawMessage(`{"id":"c1"}`)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := Parse(tc.payload)
			if tc.ok {
				require.NoError(t, err)
				require.NotNil(t, ev)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}
