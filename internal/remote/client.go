package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lordalex/botilito/internal/domain"
)

// RemoteStatus is the status vocabulary shared by every remote job family.
type RemoteStatus string

const (
	RemoteProcessing RemoteStatus = "processing"
	RemoteCompleted  RemoteStatus = "completed"
	RemoteFailed     RemoteStatus = "failed"
)

// SubmitOutcome is the result of submitting work to the remote queue.
// Either RemoteID is set (asynchronous acceptance) or Result is set
// (synchronous-result escape hatch), never both.
type SubmitOutcome struct {
	RemoteID string          `json:"job_id,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// StatusReport is one status-poll answer for a remote job.
type StatusReport struct {
	Status RemoteStatus    `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Inbox is the server-held notification list with its unread counter.
type Inbox struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// Client is the boundary to the remote analysis service. Implementations
// must be safe for concurrent use.
type Client interface {
	// Submit sends a job payload to the endpoint family matching its type.
	Submit(ctx context.Context, cred string, jobType domain.JobType, payload json.RawMessage) (*SubmitOutcome, error)

	// Status polls the remote status of an accepted job.
	Status(ctx context.Context, cred string, jobType domain.JobType, remoteID string) (*StatusReport, error)

	// EngineStatus polls the remote status of an engine analysis task.
	EngineStatus(ctx context.Context, cred string, engine domain.Engine, remoteID string) (*StatusReport, error)

	// EngineResult fetches the full result payload of a completed task.
	EngineResult(ctx context.Context, cred string, engine domain.Engine, remoteID string) (json.RawMessage, error)

	// FetchInbox retrieves the authoritative notification list.
	FetchInbox(ctx context.Context, cred string, limit int, unreadOnly bool) (*Inbox, error)

	// MarkRead marks one notification (or all, when markAll is set) as read.
	MarkRead(ctx context.Context, cred string, notificationID string, markAll bool) error

	// SendNotification appends a notification to the server inbox.
	SendNotification(ctx context.Context, cred string, note *domain.Notification) error
}

// TransportError marks a failure of the call itself (connection refused,
// timeout, malformed answer) as opposed to a failure the remote reported.
// The registry retries transport errors; remote-reported failures are final.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
