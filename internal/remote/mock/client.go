package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/remote"
)

// Ensure MockClient implements remote.Client.
var _ remote.Client = (*MockClient)(nil)

// MockClient is an in-memory mock of the remote service for testing.
// By default every submit is accepted asynchronously and every poll answers
// "processing"; hook functions override individual calls.
type MockClient struct {
	mu sync.Mutex

	// Recorded calls for test assertions.
	Submitted   []SubmittedJob
	StatusPolls []string
	SentNotes   []domain.Notification
	ReadMarks   []ReadMark

	// Hook functions for shaping responses and injecting errors.
	SubmitFunc       func(ctx context.Context, cred string, jobType domain.JobType, payload json.RawMessage) (*remote.SubmitOutcome, error)
	StatusFunc       func(ctx context.Context, cred string, jobType domain.JobType, remoteID string) (*remote.StatusReport, error)
	EngineStatusFunc func(ctx context.Context, cred string, engine domain.Engine, remoteID string) (*remote.StatusReport, error)
	EngineResultFunc func(ctx context.Context, cred string, engine domain.Engine, remoteID string) (json.RawMessage, error)
	FetchInboxFunc   func(ctx context.Context, cred string, limit int, unreadOnly bool) (*remote.Inbox, error)
	MarkReadFunc     func(ctx context.Context, cred string, notificationID string, markAll bool) error
	SendFunc         func(ctx context.Context, cred string, note *domain.Notification) error
}

// SubmittedJob records one Submit call.
type SubmittedJob struct {
	Type    domain.JobType
	Payload json.RawMessage
}

// ReadMark records one MarkRead call.
type ReadMark struct {
	NotificationID string
	All            bool
}

// NewMockClient creates a new mock remote client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Submit(ctx context.Context, cred string, jobType domain.JobType, payload json.RawMessage) (*remote.SubmitOutcome, error) {
	m.mu.Lock()
	m.Submitted = append(m.Submitted, SubmittedJob{Type: jobType, Payload: payload})
	m.mu.Unlock()

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, cred, jobType, payload)
	}
	return &remote.SubmitOutcome{RemoteID: "remote-" + string(jobType)}, nil
}

func (m *MockClient) Status(ctx context.Context, cred string, jobType domain.JobType, remoteID string) (*remote.StatusReport, error) {
	m.mu.Lock()
	m.StatusPolls = append(m.StatusPolls, remoteID)
	m.mu.Unlock()

	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, cred, jobType, remoteID)
	}
	return &remote.StatusReport{Status: remote.RemoteProcessing}, nil
}

func (m *MockClient) EngineStatus(ctx context.Context, cred string, engine domain.Engine, remoteID string) (*remote.StatusReport, error) {
	m.mu.Lock()
	m.StatusPolls = append(m.StatusPolls, remoteID)
	m.mu.Unlock()

	if m.EngineStatusFunc != nil {
		return m.EngineStatusFunc(ctx, cred, engine, remoteID)
	}
	return &remote.StatusReport{Status: remote.RemoteProcessing}, nil
}

func (m *MockClient) EngineResult(ctx context.Context, cred string, engine domain.Engine, remoteID string) (json.RawMessage, error) {
	if m.EngineResultFunc != nil {
		return m.EngineResultFunc(ctx, cred, engine, remoteID)
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockClient) FetchInbox(ctx context.Context, cred string, limit int, unreadOnly bool) (*remote.Inbox, error) {
	if m.FetchInboxFunc != nil {
		return m.FetchInboxFunc(ctx, cred, limit, unreadOnly)
	}
	return &remote.Inbox{}, nil
}

func (m *MockClient) MarkRead(ctx context.Context, cred string, notificationID string, markAll bool) error {
	m.mu.Lock()
	m.ReadMarks = append(m.ReadMarks, ReadMark{NotificationID: notificationID, All: markAll})
	m.mu.Unlock()

	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, cred, notificationID, markAll)
	}
	return nil
}

func (m *MockClient) SendNotification(ctx context.Context, cred string, note *domain.Notification) error {
	m.mu.Lock()
	m.SentNotes = append(m.SentNotes, *note)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, cred, note)
	}
	return nil
}

// SubmitCount returns how many jobs were submitted (for test assertions).
func (m *MockClient) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submitted)
}
