package grouping

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/burstreply-backend/internal/data/repos/testutil"
	"github.com/yungbote/burstreply-backend/internal/ephemeral"
	"github.com/yungbote/burstreply-backend/internal/platform/clock"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	cases := map[string]func(*Config){
		"delay not below lock": func(c *Config) { c.Delay = c.LockTTL },
		"lock not below group": func(c *Config) { c.LockTTL = c.GroupTTL },
		"freshness over ttl":   func(c *Config) { c.Freshness = c.BufferTTL + time.Second },
		"zero delay":           func(c *Config) { c.Delay = 0 },
		"blank header":         func(c *Config) { c.ReplyHeader = "  " },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestReconcileConsumesEveryEntryOnce(t *testing.T) {
	clk := clock.NewManual(t0)
	store := ephemeral.NewMemory(clk)
	buf := NewPendingBuffer(testutil.Logger(t), store, DefaultConfig())
	ctx := context.Background()

	stage := func(id string, receivedAt time.Time) {
		t.Helper()
		err := buf.Stage(ctx, BufferedMessage{ConversationID: "C1", MessageID: id, Content: id, ReceivedAt: receivedAt, EventTime: receivedAt})
		if err != nil {
			t.Fatalf("Stage %s: %v", id, err)
		}
	}
	stage("old", t0)
	clk.Advance(4 * time.Second)
	stage("new", clk.Now())
	stage("broken", clk.Now())
	clk.Advance(3 * time.Second)

	var promoted []string
	res, err := buf.Reconcile(ctx, "C1", clk.Now(), func(_ context.Context, m BufferedMessage) error {
		if m.MessageID == "broken" {
			return errors.New("db down")
		}
		promoted = append(promoted, m.MessageID)
		return nil
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Promoted != 1 || res.Stale != 1 || res.Failed != 1 {
		t.Fatalf("result: want promoted=1 stale=1 failed=1 got=%+v", res)
	}
	if len(promoted) != 1 || promoted[0] != "new" {
		t.Fatalf("promoted: want=[new] got=%v", promoted)
	}

	res, err = buf.Reconcile(ctx, "C1", clk.Now(), func(context.Context, BufferedMessage) error {
		t.Fatalf("entry promoted twice")
		return nil
	})
	if err != nil || res != (ReconcileResult{}) {
		t.Fatalf("second Reconcile: res=%+v err=%v", res, err)
	}
}

func TestReconcileIgnoresConversationsSharingAPrefix(t *testing.T) {
	store := ephemeral.NewMemory(clock.NewManual(t0))
	buf := NewPendingBuffer(testutil.Logger(t), store, DefaultConfig())
	ctx := context.Background()

	other := BufferedMessage{ConversationID: "C1:x", MessageID: "M1", ReceivedAt: t0, EventTime: t0}
	if err := buf.Stage(ctx, other); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	res, err := buf.Reconcile(ctx, "C1", t0, func(context.Context, BufferedMessage) error {
		t.Fatalf("foreign entry promoted")
		return nil
	})
	if err != nil || res.Promoted != 0 {
		t.Fatalf("Reconcile: res=%+v err=%v", res, err)
	}
	raw, ok, _ := store.Get(ctx, bufferKey("C1:x", "M1"))
	if !ok {
		t.Fatalf("foreign entry consumed")
	}
	var got BufferedMessage
	if err := json.Unmarshal(raw, &got); err != nil || got.ConversationID != "C1:x" {
		t.Fatalf("foreign entry corrupted: %s", raw)
	}
}

func TestStageOverwritesSameKey(t *testing.T) {
	store := ephemeral.NewMemory(clock.NewManual(t0))
	buf := NewPendingBuffer(testutil.Logger(t), store, DefaultConfig())
	ctx := context.Background()

	_ = buf.Stage(ctx, BufferedMessage{ConversationID: "C1", MessageID: "M1", Content: "first", ReceivedAt: t0})
	_ = buf.Stage(ctx, BufferedMessage{ConversationID: "C1", MessageID: "M1", Content: "second", ReceivedAt: t0})

	entries, err := store.ScanPrefix(ctx, bufferScanPrefix("C1"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries: want=1 got=%d err=%v", len(entries), err)
	}
	var got BufferedMessage
	_ = json.Unmarshal(entries[0].Value, &got)
	if got.Content != "second" {
		t.Fatalf("content: want=second got=%s", got.Content)
	}
}

func TestGroupTrackerReadAndClear(t *testing.T) {
	clk := clock.NewManual(t0)
	store := ephemeral.NewMemory(clk)
	cfg := DefaultConfig()
	groups := NewGroupTracker(testutil.Logger(t), store, cfg)
	lock := NewScheduleLock(store, cfg)
	ctx := context.Background()

	ids, err := groups.ReadAndClear(ctx, "C1")
	if err != nil || len(ids) != 0 {
		t.Fatalf("ReadAndClear absent: ids=%v err=%v", ids, err)
	}

	for _, id := range []string{"a", "b", "a"} {
		if _, err := groups.Append(ctx, "C1", id); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if ok, _ := lock.TryAcquire(ctx, "C1"); !ok {
		t.Fatalf("TryAcquire: expected first acquire to succeed")
	}
	if ok, _ := lock.TryAcquire(ctx, "C1"); ok {
		t.Fatalf("TryAcquire: expected second acquire to fail")
	}

	ids, err = groups.ReadAndClear(ctx, "C1")
	if err != nil {
		t.Fatalf("ReadAndClear: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids: want=[a b] got=%v", ids)
	}
	if ok, _ := lock.TryAcquire(ctx, "C1"); !ok {
		t.Fatalf("lock not cleared by ReadAndClear")
	}
}

func TestGroupExpiresWithoutAppends(t *testing.T) {
	clk := clock.NewManual(t0)
	store := ephemeral.NewMemory(clk)
	groups := NewGroupTracker(testutil.Logger(t), store, DefaultConfig())
	ctx := context.Background()

	_, _ = groups.Append(ctx, "C1", "a")
	clk.Advance(9 * time.Second)
	_, _ = groups.Append(ctx, "C1", "b")
	clk.Advance(9 * time.Second)
	if ids, _ := groups.ReadAndClear(ctx, "C1"); len(ids) != 2 {
		t.Fatalf("sliding ttl: want 2 ids got=%v", ids)
	}

	_, _ = groups.Append(ctx, "C1", "c")
	clk.Advance(10 * time.Second)
	if ids, _ := groups.ReadAndClear(ctx, "C1"); len(ids) != 0 {
		t.Fatalf("expired group: want empty got=%v", ids)
	}
}
