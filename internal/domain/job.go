package domain

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a tracked remote job.
type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
	StatusTimeout    JobStatus = "TIMEOUT"
)

// IsTerminal returns true if the status represents a final state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a forward edge of
// the job state machine. Terminal states accept no further transitions.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCompleted ||
			next == StatusFailed || next == StatusTimeout
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusTimeout
	}
	return false
}

// JobType selects which remote endpoint family a job is submitted to.
type JobType string

const (
	JobIngestion JobType = "ingestion"
	JobVoting    JobType = "voting"
	JobSearch    JobType = "search"
)

// IsValid checks if the job type is a known endpoint family.
func (t JobType) IsValid() bool {
	return t == JobIngestion || t == JobVoting || t == JobSearch
}

// Job represents one unit of asynchronous remote work throughout its
// lifecycle. The registry is the only writer; everyone else sees copies.
type Job struct {
	ID         string          `json:"id"`
	Type       JobType         `json:"type"`
	Status     JobStatus       `json:"status"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RemoteID   string          `json:"remote_id,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Progress   int             `json:"progress"`
	RetryCount int             `json:"retry_count"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    *time.Time      `json:"end_time,omitempty"`

	// Scheduler state, not part of the durable record's meaning.
	NextPoll time.Time  `json:"-"`
	Deadline *time.Time `json:"-"`
}

// Clone returns a deep-enough copy for handing out to callers.
func (j *Job) Clone() *Job {
	cp := *j
	if j.EndTime != nil {
		t := *j.EndTime
		cp.EndTime = &t
	}
	if j.Deadline != nil {
		t := *j.Deadline
		cp.Deadline = &t
	}
	return &cp
}

// SubmitRequest represents an incoming job submission from the control API.
type SubmitRequest struct {
	Type    JobType         `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
