package brand

import "time"

// JobStatus represents the lifecycle state of a batch warm-up job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobParameters captures the URLs a batch job should extract.
type JobParameters struct {
	URLs    []string `json:"urls"`
	Refresh bool     `json:"refresh"`
}

// Job represents the metadata persisted for each submitted batch.
type Job struct {
	ID         string        `json:"id"`
	Status     JobStatus     `json:"status"`
	Submitted  time.Time     `json:"submitted_at"`
	Started    *time.Time    `json:"started_at,omitempty"`
	Finished   *time.Time    `json:"finished_at,omitempty"`
	ErrorText  string        `json:"error_text,omitempty"`
	Parameters JobParameters `json:"parameters"`
	Counters   JobCounters   `json:"counters"`
}

// JobCounters tracks per-job outcomes.
type JobCounters struct {
	URLsSucceeded int `json:"urls_succeeded"`
	URLsDegraded  int `json:"urls_degraded"`
	URLsFailed    int `json:"urls_failed"`
}

// URLResult is persisted for each URL processed by a job.
type URLResult struct {
	JobID      string    `json:"job_id"`
	URL        string    `json:"url"`
	Result     *Result   `json:"result,omitempty"`
	Outcome    Outcome   `json:"outcome,omitempty"`
	ErrorText  string    `json:"error_text,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// JobResult is returned by the API result endpoint.
type JobResult struct {
	Job     Job         `json:"job"`
	Results []URLResult `json:"results"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    JobParameters
	Attempt   int
	Submitted int64
}

// IsTerminal reports whether status ends a job's lifecycle.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}
