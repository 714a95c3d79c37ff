package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/remote"
	mockremote "github.com/lordalex/botilito/internal/remote/mock"
)

func newTestSynthesizer(client *mockremote.MockClient) *Synthesizer {
	return New(DefaultConfig(), client, func() string { return "token-1" }, zap.NewNop())
}

func TestRegisterTask_Idempotent(t *testing.T) {
	s := newTestSynthesizer(mockremote.NewMockClient())

	if err := s.RegisterTask("T1", domain.EngineImage, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RegisterTask("T1", domain.EngineImage, map[string]string{"file": "a.png"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tasks := s.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected exactly one tracked task, got %d", len(tasks))
	}
	if tasks[0].Status != domain.TaskRunning {
		t.Errorf("expected RUNNING, got %s", tasks[0].Status)
	}
}

func TestRegisterTask_InvalidEngine(t *testing.T) {
	s := newTestSynthesizer(mockremote.NewMockClient())
	if err := s.RegisterTask("T1", domain.Engine("video"), nil); !errors.Is(err, domain.ErrInvalidEngine) {
		t.Errorf("expected ErrInvalidEngine, got %v", err)
	}
}

func TestTaskTick_TerminalTransitionFiresExactlyOnce(t *testing.T) {
	client := mockremote.NewMockClient()
	client.EngineStatusFunc = func(ctx context.Context, cred string, engine domain.Engine, remoteID string) (*remote.StatusReport, error) {
		return &remote.StatusReport{Status: remote.RemoteCompleted}, nil
	}
	s := newTestSynthesizer(client)
	s.RegisterTask("T1", domain.EngineAudio, nil)

	s.taskTick(context.Background())
	s.taskTick(context.Background())
	s.taskTick(context.Background())

	if len(client.SentNotes) != 1 {
		t.Fatalf("expected exactly one notification sent, got %d", len(client.SentNotes))
	}
	notes := s.Notifications()
	if len(notes) != 1 {
		t.Fatalf("expected exactly one local notification, got %d", len(notes))
	}
	if notes[0].Type != domain.NoteSuccess {
		t.Errorf("expected success notification, got %s", notes[0].Type)
	}
	if notes[0].Metadata["task_id"] != "T1" {
		t.Errorf("expected task back-reference, got %v", notes[0].Metadata)
	}
	if s.UnreadCount() != 1 {
		t.Errorf("expected unread count 1, got %d", s.UnreadCount())
	}

	tasks := s.Tasks()
	if tasks[0].Status != domain.TaskCompleted {
		t.Errorf("expected COMPLETED, got %s", tasks[0].Status)
	}
}

func TestTaskTick_FailureCarriesRemoteError(t *testing.T) {
	client := mockremote.NewMockClient()
	client.EngineStatusFunc = func(ctx context.Context, cred string, engine domain.Engine, remoteID string) (*remote.StatusReport, error) {
		return &remote.StatusReport{Status: remote.RemoteFailed, Error: "model unavailable"}, nil
	}
	s := newTestSynthesizer(client)
	s.RegisterTask("T1", domain.EngineText, nil)

	s.taskTick(context.Background())

	notes := s.Notifications()
	if len(notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notes))
	}
	if notes[0].Type != domain.NoteError {
		t.Errorf("expected error notification, got %s", notes[0].Type)
	}
	if notes[0].Priority != domain.PriorityHigh {
		t.Errorf("expected high priority, got %s", notes[0].Priority)
	}
}

func TestTaskTick_StatusCheckFailureKeepsTaskRunning(t *testing.T) {
	client := mockremote.NewMockClient()
	client.EngineStatusFunc = func(ctx context.Context, cred string, engine domain.Engine, remoteID string) (*remote.StatusReport, error) {
		return nil, &remote.TransportError{Op: "status poll", Err: errors.New("connection refused")}
	}
	s := newTestSynthesizer(client)
	s.RegisterTask("T1", domain.EngineImage, nil)

	s.taskTick(context.Background())

	if len(s.Notifications()) != 0 {
		t.Error("expected no notification on a failed status check")
	}
	if s.Tasks()[0].Status != domain.TaskRunning {
		t.Error("expected task still RUNNING after transport failure")
	}
}

func TestTaskTick_NoCredentialSkipsPolling(t *testing.T) {
	client := mockremote.NewMockClient()
	s := New(DefaultConfig(), client, func() string { return "" }, zap.NewNop())
	s.RegisterTask("T1", domain.EngineImage, nil)

	s.taskTick(context.Background())

	if len(client.StatusPolls) != 0 {
		t.Errorf("expected no polls without credential, got %d", len(client.StatusPolls))
	}
}

func inboxFixture() *remote.Inbox {
	return &remote.Inbox{
		Notifications: []domain.Notification{
			{ID: "n1", Type: domain.NoteInfo, Title: "one"},
			{ID: "n2", Type: domain.NoteWarning, Title: "two"},
		},
		UnreadCount: 2,
	}
}

func TestRefreshInbox_OverwritesLocalState(t *testing.T) {
	client := mockremote.NewMockClient()
	client.FetchInboxFunc = func(ctx context.Context, cred string, limit int, unreadOnly bool) (*remote.Inbox, error) {
		return inboxFixture(), nil
	}
	s := newTestSynthesizer(client)

	if err := s.refreshInbox(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Notifications()) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(s.Notifications()))
	}
	if s.UnreadCount() != 2 {
		t.Errorf("expected unread count 2, got %d", s.UnreadCount())
	}
}

func TestMarkRead_OptimisticDecrement(t *testing.T) {
	client := mockremote.NewMockClient()
	client.FetchInboxFunc = func(ctx context.Context, cred string, limit int, unreadOnly bool) (*remote.Inbox, error) {
		return inboxFixture(), nil
	}
	s := newTestSynthesizer(client)
	s.refreshInbox(context.Background())

	if err := s.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.UnreadCount() != 1 {
		t.Errorf("expected unread count to drop by exactly one, got %d", s.UnreadCount())
	}
	for _, note := range s.Notifications() {
		switch note.ID {
		case "n1":
			if !note.IsRead {
				t.Error("expected n1 marked read")
			}
		case "n2":
			if note.IsRead {
				t.Error("expected n2 untouched")
			}
		}
	}
	if len(client.ReadMarks) != 1 || client.ReadMarks[0].NotificationID != "n1" {
		t.Errorf("expected server confirmation for n1, got %v", client.ReadMarks)
	}

	// Marking an already-read notification changes nothing.
	s.MarkRead(context.Background(), "n1")
	if s.UnreadCount() != 1 {
		t.Errorf("expected unread count unchanged, got %d", s.UnreadCount())
	}
}

func TestMarkRead_RevertsOnServerFailure(t *testing.T) {
	client := mockremote.NewMockClient()
	client.FetchInboxFunc = func(ctx context.Context, cred string, limit int, unreadOnly bool) (*remote.Inbox, error) {
		return inboxFixture(), nil
	}
	client.MarkReadFunc = func(ctx context.Context, cred string, notificationID string, markAll bool) error {
		return errors.New("server unavailable")
	}
	s := newTestSynthesizer(client)
	s.refreshInbox(context.Background())

	if err := s.MarkRead(context.Background(), "n1"); err == nil {
		t.Fatal("expected error from failed confirmation")
	}

	// The forced refresh restored the authoritative state.
	if s.UnreadCount() != 2 {
		t.Errorf("expected unread count reverted to 2, got %d", s.UnreadCount())
	}
}

func TestMarkAllRead(t *testing.T) {
	client := mockremote.NewMockClient()
	client.FetchInboxFunc = func(ctx context.Context, cred string, limit int, unreadOnly bool) (*remote.Inbox, error) {
		return inboxFixture(), nil
	}
	s := newTestSynthesizer(client)
	s.refreshInbox(context.Background())

	if err := s.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.UnreadCount() != 0 {
		t.Errorf("expected unread count 0, got %d", s.UnreadCount())
	}
	for _, note := range s.Notifications() {
		if !note.IsRead {
			t.Errorf("expected %s marked read", note.ID)
		}
	}
	if len(client.ReadMarks) != 1 || !client.ReadMarks[0].All {
		t.Errorf("expected mark-all confirmation, got %v", client.ReadMarks)
	}
}

func TestTaskResult(t *testing.T) {
	client := mockremote.NewMockClient()
	client.EngineResultFunc = func(ctx context.Context, cred string, engine domain.Engine, remoteID string) (json.RawMessage, error) {
		if engine != domain.EngineImage || remoteID != "T1" {
			t.Errorf("unexpected lookup %s/%s", engine, remoteID)
		}
		return json.RawMessage(`{"verdict":"manipulated"}`), nil
	}
	s := newTestSynthesizer(client)
	s.RegisterTask("T1", domain.EngineImage, nil)

	result, err := s.TaskResult(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != `{"verdict":"manipulated"}` {
		t.Errorf("unexpected result: %s", result)
	}

	if _, err := s.TaskResult(context.Background(), "missing"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}
