package delayedjob

const (
	WorkflowName = "delayed_job"
	ActivityRun  = "delayed_job_run"

	// errTypeMissingHandler marks activity failures that retrying cannot fix.
	errTypeMissingHandler = "MissingHandler"
)

// Request is the workflow input. It is serialised by Temporal's JSON converter.
type Request struct {
	JobType string            `json:"job_type"`
	Args    map[string]string `json:"args,omitempty"`
}
