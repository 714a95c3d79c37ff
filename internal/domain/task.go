package domain

import "time"

// TaskStatus represents the lifecycle state of an engine analysis task.
// Tasks are registered after submission happened elsewhere, so there is no
// pending phase.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

// IsTerminal returns true if the status represents a final state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Engine identifies a forensic analysis engine family.
type Engine string

const (
	EngineImage Engine = "image"
	EngineAudio Engine = "audio"
	EngineText  Engine = "text"
)

// IsValid checks if the engine family is supported.
func (e Engine) IsValid() bool {
	return e == EngineImage || e == EngineAudio || e == EngineText
}

// Task tracks one engine-specific analysis job by its remote id.
type Task struct {
	RemoteID  string            `json:"remote_id"`
	Engine    Engine            `json:"engine"`
	Status    TaskStatus        `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
