package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/burstreply-backend/internal/jobs/runtime"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

func newRegistry(t *testing.T, handlers ...runtime.Handler) *runtime.Registry {
	t.Helper()
	r := runtime.NewRegistry()
	for _, h := range handlers {
		require.NoError(t, r.Register(h))
	}
	return r
}

func TestWorkerRunsJobAfterDelayWithArgs(t *testing.T) {
	got := make(chan runtime.Args, 1)
	reg := newRegistry(t, runtime.HandlerFunc{Name: "echo", Fn: func(_ context.Context, args runtime.Args) error {
		got <- args
		return nil
	}})
	w := NewWorker(logger.Nop(), reg, 2, time.Second)
	defer func() { _ = w.Stop(context.Background()) }()

	args := runtime.Args{"conversation_id": "c-1"}
	start := time.Now()
	require.NoError(t, w.Schedule(context.Background(), "echo", args, 50*time.Millisecond))
	args["conversation_id"] = "mutated"

	select {
	case a := <-got:
		require.Equal(t, "c-1", a["conversation_id"])
		require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestWorkerRejectsUnknownJob(t *testing.T) {
	w := NewWorker(logger.Nop(), runtime.NewRegistry(), 1, time.Second)
	err := w.Schedule(context.Background(), "nope", nil, 0)
	var me *runtime.MissingHandlerError
	require.True(t, errors.As(err, &me))
}

func TestWorkerSurvivesPanickingJob(t *testing.T) {
	var ran atomic.Int32
	reg := newRegistry(t,
		runtime.HandlerFunc{Name: "boom", Fn: func(context.Context, runtime.Args) error { panic("x") }},
		runtime.HandlerFunc{Name: "ok", Fn: func(context.Context, runtime.Args) error { ran.Add(1); return nil }},
	)
	w := NewWorker(logger.Nop(), reg, 1, time.Second)
	require.NoError(t, w.Schedule(context.Background(), "boom", nil, 0))
	require.NoError(t, w.Schedule(context.Background(), "ok", nil, 10*time.Millisecond))

	require.Eventually(t, func() bool { return ran.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop(context.Background()))
}

func TestWorkerStopDropsPendingAndRefusesNewJobs(t *testing.T) {
	var ran atomic.Int32
	reg := newRegistry(t, runtime.HandlerFunc{Name: "late", Fn: func(context.Context, runtime.Args) error { ran.Add(1); return nil }})
	w := NewWorker(logger.Nop(), reg, 1, time.Second)
	require.NoError(t, w.Schedule(context.Background(), "late", nil, time.Hour))
	require.Equal(t, 1, w.Pending())

	require.NoError(t, w.Stop(context.Background()))
	require.Equal(t, 0, w.Pending())
	require.EqualValues(t, 0, ran.Load())
	require.ErrorIs(t, w.Schedule(context.Background(), "late", nil, 0), ErrStopped)
}
