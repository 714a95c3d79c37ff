// Package notify bridges engine analysis tasks, registered after their
// submission happened elsewhere, to user-visible notifications, and keeps
// the local notification list synchronized with the server-held inbox.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/metrics"
	"github.com/lordalex/botilito/internal/remote"
)

// CredentialFunc supplies the current session credential; empty means absent.
type CredentialFunc func() string

// Config holds the synthesizer's loop cadences.
type Config struct {
	// TaskInterval is the cadence of status checks over running tasks.
	TaskInterval time.Duration
	// InboxInterval is the slower cadence of authoritative inbox fetches.
	InboxInterval time.Duration
	// InboxLimit bounds how many notifications one inbox fetch requests.
	InboxLimit int
}

// DefaultConfig returns the synthesizer defaults used when a knob is zero.
func DefaultConfig() Config {
	return Config{
		TaskInterval:  3 * time.Second,
		InboxInterval: 30 * time.Second,
		InboxLimit:    50,
	}
}

// Synthesizer tracks engine tasks by remote id, polls each until terminal,
// converts the first terminal observation into exactly one notification,
// and mirrors the server inbox.
type Synthesizer struct {
	cfg    Config
	client remote.Client
	cred   CredentialFunc
	logger *zap.Logger

	mu     sync.Mutex
	tasks  map[string]*domain.Task
	notes  []domain.Notification
	unread int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a synthesizer. Call Start to begin the task and inbox loops.
func New(cfg Config, client remote.Client, cred CredentialFunc, logger *zap.Logger) *Synthesizer {
	def := DefaultConfig()
	if cfg.TaskInterval <= 0 {
		cfg.TaskInterval = def.TaskInterval
	}
	if cfg.InboxInterval <= 0 {
		cfg.InboxInterval = def.InboxInterval
	}
	if cfg.InboxLimit <= 0 {
		cfg.InboxLimit = def.InboxLimit
	}

	return &Synthesizer{
		cfg:    cfg,
		client: client,
		cred:   cred,
		logger: logger,
		tasks:  make(map[string]*domain.Task),
	}
}

// Start launches the task-poll and inbox-sync loops.
func (s *Synthesizer) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go s.loop(loopCtx, s.cfg.TaskInterval, s.taskTick)
	go s.loop(loopCtx, s.cfg.InboxInterval, func(ctx context.Context) { s.refreshInbox(ctx) })

	s.logger.Info("Task notification synthesizer started")
}

// Shutdown stops both loops and waits for the current ticks to finish.
func (s *Synthesizer) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Task notification synthesizer stopped")
}

func (s *Synthesizer) loop(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// RegisterTask starts tracking an engine task already submitted elsewhere.
// Registering an already-tracked remote id is a no-op.
func (s *Synthesizer) RegisterTask(remoteID string, engine domain.Engine, metadata map[string]string) error {
	if !engine.IsValid() {
		return domain.ErrInvalidEngine
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[remoteID]; ok {
		return nil
	}

	s.tasks[remoteID] = &domain.Task{
		RemoteID:  remoteID,
		Engine:    engine,
		Status:    domain.TaskRunning,
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
	}
	s.logger.Info("Task registered",
		zap.String("remote_id", remoteID),
		zap.String("engine", string(engine)),
	)
	return nil
}

// Tasks returns a copy of all tracked tasks.
func (s *Synthesizer) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, *task)
	}
	return out
}

// Notifications returns a copy of the local notification list.
func (s *Synthesizer) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, len(s.notes))
	copy(out, s.notes)
	return out
}

// UnreadCount returns the locally known unread counter.
func (s *Synthesizer) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// taskTick checks every still-running task once, sequentially. A status
// change into a terminal state fires exactly one notification; repeated
// polls of a task that already turned terminal fire nothing.
func (s *Synthesizer) taskTick(ctx context.Context) {
	cred := s.cred()
	if cred == "" {
		return
	}

	s.mu.Lock()
	var running []domain.Task
	for _, task := range s.tasks {
		if task.Status == domain.TaskRunning {
			running = append(running, *task)
		}
	}
	s.mu.Unlock()

	for _, task := range running {
		report, err := s.client.EngineStatus(ctx, cred, task.Engine, task.RemoteID)
		if err != nil {
			s.logger.Warn("Task status check failed",
				zap.String("remote_id", task.RemoteID),
				zap.Error(err),
			)
			continue
		}

		var next domain.TaskStatus
		switch report.Status {
		case remote.RemoteCompleted:
			next = domain.TaskCompleted
		case remote.RemoteFailed:
			next = domain.TaskFailed
		default:
			continue
		}

		s.mu.Lock()
		tracked, ok := s.tasks[task.RemoteID]
		if !ok || tracked.Status != domain.TaskRunning {
			// Someone else applied the transition already; do not re-fire.
			s.mu.Unlock()
			continue
		}
		tracked.Status = next
		s.mu.Unlock()

		s.announce(ctx, cred, tracked, report.Error)
	}
}

// announce creates the notification for one terminal task transition,
// sends it to the server inbox, and appends it locally optimistically.
func (s *Synthesizer) announce(ctx context.Context, cred string, task *domain.Task, remoteErr string) {
	id, err := uuid.NewV7()
	if err != nil {
		s.logger.Error("Generating notification id failed", zap.Error(err))
		return
	}

	note := domain.Notification{
		ID:        id.String(),
		CreatedAt: time.Now().UTC(),
		Priority:  domain.PriorityNormal,
		Metadata: map[string]string{
			"task_id": task.RemoteID,
			"engine":  string(task.Engine),
		},
	}
	switch task.Status {
	case domain.TaskCompleted:
		note.Type = domain.NoteSuccess
		note.Title = fmt.Sprintf("%s analysis finished", task.Engine)
		note.Message = fmt.Sprintf("The %s analysis task completed. Results are ready to view.", task.Engine)
	default:
		note.Type = domain.NoteError
		note.Priority = domain.PriorityHigh
		note.Title = fmt.Sprintf("%s analysis failed", task.Engine)
		note.Message = fmt.Sprintf("The %s analysis task failed.", task.Engine)
		if remoteErr != "" {
			note.Message = fmt.Sprintf("The %s analysis task failed: %s", task.Engine, remoteErr)
		}
	}

	metrics.NotificationsCreated.WithLabelValues(string(note.Type)).Inc()

	if err := s.client.SendNotification(ctx, cred, &note); err != nil {
		// The local copy still lands; the next inbox sync reconciles.
		s.logger.Warn("Sending notification to inbox failed",
			zap.String("task_id", task.RemoteID),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	s.notes = append([]domain.Notification{note}, s.notes...)
	s.unread++
	s.mu.Unlock()

	s.logger.Info("Notification created",
		zap.String("task_id", task.RemoteID),
		zap.String("type", string(note.Type)),
	)
}

// refreshInbox fetches the authoritative notification list and overwrites
// local state with it.
func (s *Synthesizer) refreshInbox(ctx context.Context) error {
	cred := s.cred()
	if cred == "" {
		return domain.ErrNoCredential
	}

	inbox, err := s.client.FetchInbox(ctx, cred, s.cfg.InboxLimit, false)
	if err != nil {
		s.logger.Warn("Inbox refresh failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.notes = inbox.Notifications
	s.unread = inbox.UnreadCount
	s.mu.Unlock()
	return nil
}

// MarkRead flips one notification to read optimistically, confirms with the
// server, and reverts by forcing a refresh when the confirmation fails.
func (s *Synthesizer) MarkRead(ctx context.Context, id string) error {
	cred := s.cred()
	if cred == "" {
		return domain.ErrNoCredential
	}

	s.mu.Lock()
	for i := range s.notes {
		if s.notes[i].ID == id && !s.notes[i].IsRead {
			s.notes[i].IsRead = true
			if s.unread > 0 {
				s.unread--
			}
			break
		}
	}
	s.mu.Unlock()

	if err := s.client.MarkRead(ctx, cred, id, false); err != nil {
		s.logger.Warn("Mark-as-read failed, reverting", zap.String("id", id), zap.Error(err))
		_ = s.refreshInbox(ctx)
		return err
	}
	return nil
}

// MarkAllRead flips every notification to read, with the same optimistic
// apply and revert-on-failure behavior as MarkRead.
func (s *Synthesizer) MarkAllRead(ctx context.Context) error {
	cred := s.cred()
	if cred == "" {
		return domain.ErrNoCredential
	}

	s.mu.Lock()
	for i := range s.notes {
		s.notes[i].IsRead = true
	}
	s.unread = 0
	s.mu.Unlock()

	if err := s.client.MarkRead(ctx, cred, "", true); err != nil {
		s.logger.Warn("Mark-all-read failed, reverting", zap.Error(err))
		_ = s.refreshInbox(ctx)
		return err
	}
	return nil
}

// TaskResult fetches the full result payload for a completed task. The
// result is not cached beyond the call.
func (s *Synthesizer) TaskResult(ctx context.Context, remoteID string) (json.RawMessage, error) {
	cred := s.cred()
	if cred == "" {
		return nil, domain.ErrNoCredential
	}

	s.mu.Lock()
	task, ok := s.tasks[remoteID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrTaskNotFound
	}
	engine := task.Engine
	s.mu.Unlock()

	return s.client.EngineResult(ctx, cred, engine, remoteID)
}
