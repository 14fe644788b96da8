package delayedjob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	jobrt "github.com/yungbote/burstreply-backend/internal/jobs/runtime"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

const schedulerName = "temporal"

// WorkflowStarter is the slice of the Temporal client the scheduler needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

// Scheduler hands delayed jobs to Temporal. Jobs survive process restarts and run on
// whichever worker polls the task queue.
type Scheduler struct {
	log       *logger.Logger
	client    WorkflowStarter
	taskQueue string
}

func NewScheduler(log *logger.Logger, client WorkflowStarter, taskQueue string) (*Scheduler, error) {
	if client == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	tq := strings.TrimSpace(taskQueue)
	if tq == "" {
		tq = "burstreply"
	}
	return &Scheduler{log: log.With("component", "TemporalScheduler"), client: client, taskQueue: tq}, nil
}

func (s *Scheduler) Schedule(ctx context.Context, jobType string, args jobrt.Args, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:         jobType + "-" + uuid.NewString(),
		TaskQueue:  s.taskQueue,
		StartDelay: delay,
		// Generous bound; the job itself finishes in well under a minute.
		WorkflowExecutionTimeout: delay + 10*time.Minute,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, WorkflowName, Request{JobType: jobType, Args: args})
	if err != nil {
		observability.Current().IncJobScheduled(schedulerName, jobType, "failed")
		return fmt.Errorf("schedule %s: %w", jobType, err)
	}
	observability.Current().IncJobScheduled(schedulerName, jobType, "ok")
	s.log.Debug("Job scheduled", "job_type", jobType, "workflow_id", run.GetID(), "delay", delay.String())
	return nil
}
