package domain

import "time"

// JobType enumerates long-running operations executed by the worker.
type JobType string

const (
	JobTypeAutoGroup      JobType = "AUTO_GROUP"
	JobTypeGenerateDrafts JobType = "GENERATE_DRAFTS"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusError     JobStatus = "ERROR"
)

// Job tracks one asynchronous unit of work. Clients observe it exclusively by
// polling; progress is monotonically non-decreasing while the job runs, and
// terminal records are retained until a newer job for the same target
// supersedes them.
type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	TargetID  string    `json:"target_id"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}
