package grouping

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/burstreply-backend/internal/data/repos"
	"github.com/yungbote/burstreply-backend/internal/data/repos/testutil"
	types "github.com/yungbote/burstreply-backend/internal/domain"
	"github.com/yungbote/burstreply-backend/internal/ephemeral"
	jobrt "github.com/yungbote/burstreply-backend/internal/jobs/runtime"
	"github.com/yungbote/burstreply-backend/internal/platform/clock"
)

var t0 = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

type scheduledJob struct {
	jobType string
	args    jobrt.Args
	delay   time.Duration
	at      time.Time
}

type fakeScheduler struct {
	mu   sync.Mutex
	clk  clock.Clock
	err  error
	jobs []scheduledJob
}

func (f *fakeScheduler) Schedule(_ context.Context, jobType string, args jobrt.Args, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, scheduledJob{jobType: jobType, args: args, delay: delay, at: f.clk.Now().Add(delay)})
	return nil
}

func (f *fakeScheduler) scheduled() []scheduledJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduledJob(nil), f.jobs...)
}

type harness struct {
	t     *testing.T
	db    *gorm.DB
	clk   *clock.Manual
	store *ephemeral.Memory
	sched *fakeScheduler
	coord *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test put a wrapper between the coordinator and the
// in-memory store. h.store stays the unwrapped store.
func newHarnessWith(t *testing.T, wrap func(*ephemeral.Memory) ephemeral.Store) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	clk := clock.NewManual(t0)
	store := ephemeral.NewMemory(clk)
	var coordStore ephemeral.Store = store
	if wrap != nil {
		coordStore = wrap(store)
	}
	sched := &fakeScheduler{clk: clk}
	coord, err := New(Deps{
		Log:           log,
		Store:         coordStore,
		Scheduler:     sched,
		Conversations: repos.NewConversationRepo(db, log),
		Messages:      repos.NewMessageRepo(db, log),
		Clock:         clk,
		Config:        DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{t: t, db: db, clk: clk, store: store, sched: sched, coord: coord}
}

// runDue advances the clock to each scheduled job's fire time and runs it through the handler.
func (h *harness) runDue() {
	h.t.Helper()
	handler := h.coord.AggregationJob()
	for _, j := range h.sched.scheduled() {
		if h.clk.Now().Before(j.at) {
			h.clk.Set(j.at)
		}
		if err := handler.Run(context.Background(), j.args); err != nil {
			h.t.Fatalf("job %s: %v", j.jobType, err)
		}
	}
	h.sched.mu.Lock()
	h.sched.jobs = nil
	h.sched.mu.Unlock()
}

func (h *harness) messages(conversationID, direction string) []types.Message {
	h.t.Helper()
	var out []types.Message
	if err := h.db.Where("conversation_id = ? AND direction = ?", conversationID, direction).
		Order("timestamp ASC").Find(&out).Error; err != nil {
		h.t.Fatalf("list messages: %v", err)
	}
	return out
}

func mustOutcome(t *testing.T, what string, out Outcome, err error, want Status) Outcome {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", what, err)
	}
	if out.Status != want {
		t.Fatalf("%s: want=%s got=%s (reason=%q)", what, want, out.Status, out.Reason())
	}
	return out
}
