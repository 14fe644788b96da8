package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", 200, time.Millisecond)
	m.IncWebhookEvent("NEW_MESSAGE", "accepted")
	m.IncReconcile("promoted")
	m.ObserveAggregation("succeeded", 2, time.Millisecond)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
}

func TestWritePrometheusRendersSortedSeries(t *testing.T) {
	m := New(time.Second)
	m.IncWebhookEvent("NEW_MESSAGE", "buffered")
	m.IncWebhookEvent("NEW_MESSAGE", "accepted")
	m.IncWebhookEvent("NEW_MESSAGE", "accepted")
	m.ObserveAggregation("succeeded", 3, 20*time.Millisecond)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()

	accepted := `br_webhook_events_total{type="NEW_MESSAGE",outcome="accepted"} 2`
	buffered := `br_webhook_events_total{type="NEW_MESSAGE",outcome="buffered"} 1`
	if !strings.Contains(out, accepted) || !strings.Contains(out, buffered) {
		t.Fatalf("webhook series missing:\n%s", out)
	}
	if strings.Index(out, accepted) > strings.Index(out, buffered) {
		t.Fatalf("series not sorted:\n%s", out)
	}
	if !strings.Contains(out, `br_aggregation_messages_bucket{le="3"} 1`) {
		t.Fatalf("aggregation size bucket missing:\n%s", out)
	}
	if !strings.Contains(out, `br_aggregation_messages_bucket{le="2"} 0`) {
		t.Fatalf("aggregation size lower bucket wrong:\n%s", out)
	}
}

func TestLabelStringFillsMissingValues(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{"x"})
	if got != `{a="x",b="unknown"}` {
		t.Fatalf("labelString: want=%s got=%s", `{a="x",b="unknown"}`, got)
	}
	if got := withLe("", "+Inf"); got != `{le="+Inf"}` {
		t.Fatalf("withLe empty: got=%s", got)
	}
}
