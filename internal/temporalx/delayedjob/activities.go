package delayedjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	jobrt "github.com/yungbote/burstreply-backend/internal/jobs/runtime"
	"github.com/yungbote/burstreply-backend/internal/observability"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	Registry *jobrt.Registry
}

func (a *Activities) Run(ctx context.Context, req Request) error {
	if a == nil || a.Registry == nil {
		return fmt.Errorf("delayed_job: activity not configured")
	}
	start := time.Now()
	err := a.Registry.Run(ctx, req.JobType, jobrt.Args(req.Args))
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	observability.Current().ObserveJobRun(schedulerName, req.JobType, status, time.Since(start))

	var missing *jobrt.MissingHandlerError
	if errors.As(err, &missing) {
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeMissingHandler, err)
	}
	if err != nil && a.Log != nil {
		a.Log.Warn("Delayed job failed", "job_type", req.JobType, "error", err)
	}
	return err
}
