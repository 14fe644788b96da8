package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yungbote/burstreply-backend/internal/jobs/runtime"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

const schedulerName = "local"

var ErrStopped = errors.New("worker stopped")

// Worker is the in-process delayed job scheduler. Jobs live only in memory, so a
// process restart loses anything still waiting on its timer.
type Worker struct {
	log        *logger.Logger
	registry   *runtime.Registry
	sem        *semaphore.Weighted
	jobTimeout time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	timers  map[*time.Timer]struct{}
	stopped bool
	wg      sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, registry *runtime.Registry, concurrency int, jobTimeout time.Duration) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		log:        baseLog.With("component", "JobWorker"),
		registry:   registry,
		sem:        semaphore.NewWeighted(int64(concurrency)),
		jobTimeout: jobTimeout,
		ctx:        ctx,
		cancel:     cancel,
		timers:     map[*time.Timer]struct{}{},
	}
}

// Schedule arms a timer for jobType. The caller's ctx only bounds the hand-off;
// the job itself runs under the worker's lifetime.
func (w *Worker) Schedule(ctx context.Context, jobType string, args runtime.Args, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := w.registry.Get(jobType); !ok {
		observability.Current().IncJobScheduled(schedulerName, jobType, "missing_handler")
		return &runtime.MissingHandlerError{JobType: jobType}
	}
	if delay < 0 {
		delay = 0
	}
	copied := make(runtime.Args, len(args))
	for k, v := range args {
		copied[k] = v
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrStopped
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.timers, t)
		w.mu.Unlock()
		w.run(jobType, copied)
	})
	w.timers[t] = struct{}{}
	observability.Current().IncJobScheduled(schedulerName, jobType, "ok")
	w.log.Debug("Job scheduled", "job_type", jobType, "delay", delay.String())
	return nil
}

func (w *Worker) run(jobType string, args runtime.Args) {
	if err := w.sem.Acquire(w.ctx, 1); err != nil {
		return
	}
	defer w.sem.Release(1)

	ctx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := w.registry.Run(ctx, jobType, args)
	status := "succeeded"
	if err != nil {
		status = "failed"
		var pe *runtime.PanicError
		if errors.As(err, &pe) {
			status = "panic"
		}
		w.log.Error("Job failed", "job_type", jobType, "status", status, "error", err)
	}
	observability.Current().ObserveJobRun(schedulerName, jobType, status, time.Since(start))
}

// Pending reports how many jobs are still waiting on their timer.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// Stop cancels waiting timers and waits for running jobs until ctx expires.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	dropped := 0
	for t := range w.timers {
		if t.Stop() {
			dropped++
			w.wg.Done()
		}
		delete(w.timers, t)
	}
	w.mu.Unlock()
	if dropped > 0 {
		w.log.Warn("Dropping scheduled jobs on shutdown", "count", dropped)
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		return ctx.Err()
	}
}
