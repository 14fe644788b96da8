package delayedjob

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one registered job. The delay itself is applied by the server via
// StartWorkflowOptions.StartDelay, so the workflow body has nothing to wait on.
func Workflow(ctx workflow.Context, req Request) error {
	if strings.TrimSpace(req.JobType) == "" {
		return temporal.NewNonRetryableApplicationError("delayed_job: missing job_type", "InvalidRequest", nil)
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{errTypeMissingHandler},
		},
	})
	if err := workflow.ExecuteActivity(ctx, ActivityRun, req).Get(ctx, nil); err != nil {
		return fmt.Errorf("delayed_job %s: %w", req.JobType, err)
	}
	return nil
}
