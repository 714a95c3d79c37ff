package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/metrics"
	"github.com/lordalex/botilito/internal/remote"
	"github.com/lordalex/botilito/internal/store"
)

// Config holds tuning knobs for the registry's poll scheduler.
type Config struct {
	// PollInterval is the scheduler tick and the base backoff interval.
	PollInterval time.Duration
	// MaxPollInterval caps the per-job exponential backoff.
	MaxPollInterval time.Duration
	// MaxTransportRetries bounds consecutive transport failures on status
	// polls before a job is failed.
	MaxTransportRetries int
}

// DefaultConfig returns the registry defaults used when a knob is zero.
func DefaultConfig() Config {
	return Config{
		PollInterval:        2 * time.Second,
		MaxPollInterval:     30 * time.Second,
		MaxTransportRetries: 3,
	}
}

// Registry owns the in-memory job map and drives every job to a terminal
// status: it submits pending jobs to the remote queue and runs a single
// poll scheduler over all processing jobs, with per-job backoff and
// optional per-job deadlines. It is an explicitly constructed service;
// Shutdown stops its timers.
type Registry struct {
	cfg    Config
	client remote.Client
	store  store.Store
	bus    *Bus
	logger *zap.Logger

	mu             sync.Mutex
	jobs           map[string]*domain.Job
	cred           string
	submitting     map[string]bool
	transportFails map[string]int
	closed         bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a registry. Call Start to load the persisted snapshot and
// begin polling.
func New(cfg Config, client remote.Client, st store.Store, logger *zap.Logger) *Registry {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPollInterval <= 0 {
		cfg.MaxPollInterval = def.MaxPollInterval
	}
	if cfg.MaxTransportRetries <= 0 {
		cfg.MaxTransportRetries = def.MaxTransportRetries
	}

	return &Registry{
		cfg:            cfg,
		client:         client,
		store:          st,
		bus:            NewBus(),
		logger:         logger,
		jobs:           make(map[string]*domain.Job),
		submitting:     make(map[string]bool),
		transportFails: make(map[string]int),
	}
}

// Bus exposes the registry's event bus for subscribers.
func (r *Registry) Bus() *Bus { return r.bus }

// Start loads the persisted job snapshot and launches the poll scheduler.
// Jobs persisted as processing come back pending and are re-driven once a
// credential is available.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.ErrRegistryClosed
	}

	jobs, err := r.store.Load(ctx)
	if err != nil {
		// A broken store degrades to an empty job map, never a crash.
		r.logger.Warn("Loading job snapshot failed, starting empty", zap.Error(err))
		jobs = make(map[string]*domain.Job)
	}
	r.jobs = jobs
	metrics.JobsInFlight.Set(float64(r.inFlightLocked()))

	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	r.logger.Info("Job registry started", zap.Int("restored_jobs", len(jobs)))

	r.wg.Add(1)
	go r.loop(loopCtx)
	return nil
}

// Shutdown stops the poll scheduler and waits for in-flight work to finish.
// The registry cannot be restarted afterwards.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.logger.Info("Job registry stopped")
}

func (r *Registry) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollTick(ctx)
		}
	}
}

// AddJob creates a job in pending status, persists it, emits job:added and
// immediately attempts to advance it in the background. The local id is
// returned synchronously; the remote submission is asynchronous.
func (r *Registry) AddJob(ctx context.Context, jobType domain.JobType, payload json.RawMessage) (string, error) {
	if !jobType.IsValid() {
		return "", domain.ErrInvalidJobType
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}

	job := &domain.Job{
		ID:        id.String(),
		Type:      jobType,
		Status:    domain.StatusPending,
		Payload:   payload,
		StartTime: time.Now().UTC(),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", domain.ErrRegistryClosed
	}
	r.jobs[job.ID] = job
	r.persistLocked(ctx)
	metrics.JobsInFlight.Set(float64(r.inFlightLocked()))
	snapshot := job.Clone()
	r.mu.Unlock()

	metrics.JobsSubmitted.WithLabelValues(string(jobType)).Inc()
	r.bus.Emit(Event{Name: EventJobAdded, Job: snapshot})
	r.bus.Emit(Event{Name: EventJobUpdated, Job: snapshot.Clone()})

	r.logger.Info("Job added",
		zap.String("job_id", job.ID),
		zap.String("type", string(jobType)),
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.submitJob(context.Background(), job.ID)
	}()

	return job.ID, nil
}

// Job returns a copy of one job record.
func (r *Registry) Job(id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

// Jobs returns a copy of the whole job map.
func (r *Registry) Jobs() map[string]*domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*domain.Job, len(r.jobs))
	for id, job := range r.jobs {
		out[id] = job.Clone()
	}
	return out
}

// ClearJobs wipes the in-memory map and the persisted snapshot.
func (r *Registry) ClearJobs(ctx context.Context) {
	r.mu.Lock()
	r.jobs = make(map[string]*domain.Job)
	r.transportFails = make(map[string]int)
	r.persistLocked(ctx)
	metrics.JobsInFlight.Set(0)
	r.mu.Unlock()

	r.bus.Emit(Event{Name: EventJobsCleared})
	r.logger.Info("All jobs cleared")
}

// SetCredential supplies or revokes the session credential. Supplying one
// re-drives every job still pending; revoking pauses polling of processing
// jobs until a credential returns.
func (r *Registry) SetCredential(cred string) {
	r.mu.Lock()
	had := r.cred != ""
	r.cred = cred
	var pending []string
	if !had && cred != "" {
		for id, job := range r.jobs {
			if job.Status == domain.StatusPending {
				pending = append(pending, id)
			}
		}
	}
	r.mu.Unlock()

	if cred == "" {
		r.logger.Info("Session credential revoked, polling paused")
		return
	}

	for _, id := range pending {
		r.wg.Add(1)
		go func(jobID string) {
			defer r.wg.Done()
			r.submitJob(context.Background(), jobID)
		}(id)
	}
}

// Credential returns the current session credential, or empty when absent.
func (r *Registry) Credential() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cred
}

// SetDeadline attaches a wall-clock budget to a non-terminal job. The poll
// scheduler times the job out once the budget elapses.
func (r *Registry) SetDeadline(id string, budget time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return domain.ErrTerminalJob
	}

	deadline := time.Now().UTC().Add(budget)
	job.Deadline = &deadline
	return nil
}

// submitJob attempts to advance one pending job by submitting its payload
// to the remote endpoint matching its type. A missing credential leaves the
// job pending for a later attempt; that is not an error.
func (r *Registry) submitJob(ctx context.Context, id string) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok || job.Status != domain.StatusPending || r.submitting[id] {
		r.mu.Unlock()
		return
	}
	cred := r.cred
	if cred == "" {
		r.mu.Unlock()
		r.logger.Debug("No credential yet, job stays pending", zap.String("job_id", id))
		return
	}
	r.submitting[id] = true
	jobType := job.Type
	payload := job.Payload
	r.mu.Unlock()

	outcome, err := r.client.Submit(ctx, cred, jobType, payload)

	r.mu.Lock()
	delete(r.submitting, id)
	job, ok = r.jobs[id]
	if !ok || job.Status != domain.StatusPending {
		r.mu.Unlock()
		return
	}

	var events []Event
	switch {
	case errors.Is(err, domain.ErrNoCredential):
		// Credential vanished between the check and the call; retry later.
	case err != nil:
		events = r.failLocked(ctx, job, err.Error())
	case outcome.RemoteID != "":
		job.Status = domain.StatusProcessing
		job.RemoteID = outcome.RemoteID
		job.Progress = 5
		job.NextPoll = time.Now().UTC().Add(r.cfg.PollInterval)
		r.persistLocked(ctx)
		metrics.JobTransitions.WithLabelValues(string(job.Type), string(job.Status)).Inc()
		events = append(events,
			Event{Name: EventJobUpdated, Job: job.Clone()},
		)
	default:
		// Synchronous-result escape hatch: no remote id, done already.
		events = r.completeLocked(ctx, job, outcome.Result)
	}
	r.mu.Unlock()

	for _, e := range events {
		r.bus.Emit(e)
	}
}

// pollTick runs one scheduler round: deadlines first, then pending
// submissions, then due status polls. Jobs are checked sequentially within
// a round. With no credential, processing jobs are paused, not failed.
func (r *Registry) pollTick(ctx context.Context) {
	started := time.Now()
	now := started.UTC()

	r.mu.Lock()
	cred := r.cred
	var timedOut []*domain.Job
	var toSubmit []string
	var toPoll []string
	for id, job := range r.jobs {
		if job.Status.IsTerminal() {
			continue
		}
		if job.Deadline != nil && now.After(*job.Deadline) {
			timedOut = append(timedOut, job)
			continue
		}
		if cred == "" {
			continue
		}
		switch job.Status {
		case domain.StatusPending:
			if !r.submitting[id] {
				toSubmit = append(toSubmit, id)
			}
		case domain.StatusProcessing:
			if !now.Before(job.NextPoll) {
				toPoll = append(toPoll, id)
			}
		}
	}

	var events []Event
	for _, job := range timedOut {
		events = append(events, r.timeoutLocked(ctx, job)...)
	}
	r.mu.Unlock()

	for _, e := range events {
		r.bus.Emit(e)
	}

	for _, id := range toSubmit {
		r.submitJob(ctx, id)
	}
	for _, id := range toPoll {
		r.pollJob(ctx, id)
	}

	metrics.PollRounds.Inc()
	metrics.PollDuration.Observe(time.Since(started).Seconds())
}

// pollJob checks the remote status of one processing job and applies the
// resulting transition, if any.
func (r *Registry) pollJob(ctx context.Context, id string) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok || job.Status != domain.StatusProcessing {
		r.mu.Unlock()
		return
	}
	cred := r.cred
	if cred == "" {
		r.mu.Unlock()
		return
	}
	jobType := job.Type
	remoteID := job.RemoteID
	r.mu.Unlock()

	report, err := r.client.Status(ctx, cred, jobType, remoteID)

	r.mu.Lock()
	job, ok = r.jobs[id]
	if !ok || job.Status != domain.StatusProcessing {
		r.mu.Unlock()
		return
	}

	now := time.Now().UTC()
	var events []Event
	switch {
	case err != nil && remote.IsTransport(err):
		r.transportFails[id]++
		metrics.TransportRetries.Inc()
		if r.transportFails[id] > r.cfg.MaxTransportRetries {
			events = r.failLocked(ctx, job, "polling request failed: "+err.Error())
		} else {
			r.logger.Warn("Status poll transport failure, will retry",
				zap.String("job_id", id),
				zap.Int("attempt", r.transportFails[id]),
				zap.Error(err),
			)
			job.NextPoll = now.Add(r.backoff(job.RetryCount))
		}
	case err != nil:
		events = r.failLocked(ctx, job, err.Error())
	case report.Status == remote.RemoteCompleted:
		events = r.completeLocked(ctx, job, report.Result)
	case report.Status == remote.RemoteFailed:
		msg := report.Error
		if msg == "" {
			msg = "remote job failed"
		}
		events = r.failLocked(ctx, job, msg)
	default:
		// Still running: count the observation, nudge the heuristic
		// progress, and back the next poll off exponentially.
		delete(r.transportFails, id)
		job.RetryCount++
		if job.Progress < 95 {
			job.Progress += 5
		}
		job.NextPoll = now.Add(r.backoff(job.RetryCount))
		r.persistLocked(ctx)
		events = append(events, Event{Name: EventJobUpdated, Job: job.Clone()})
	}
	r.mu.Unlock()

	for _, e := range events {
		r.bus.Emit(e)
	}
}

// backoff returns the poll interval after n non-terminal observations,
// doubling from the base interval up to the configured cap.
func (r *Registry) backoff(n int) time.Duration {
	d := r.cfg.PollInterval
	for i := 0; i < n; i++ {
		d *= 2
		if d >= r.cfg.MaxPollInterval {
			return r.cfg.MaxPollInterval
		}
	}
	return d
}

// completeLocked finishes a job successfully. Result and EndTime are set
// exactly once. Caller holds the lock and emits the returned events.
func (r *Registry) completeLocked(ctx context.Context, job *domain.Job, result json.RawMessage) []Event {
	if !job.Status.CanTransition(domain.StatusCompleted) {
		return nil
	}
	now := time.Now().UTC()
	job.Status = domain.StatusCompleted
	job.Result = result
	job.Progress = 100
	job.EndTime = &now
	delete(r.transportFails, job.ID)
	r.persistLocked(ctx)

	metrics.JobTransitions.WithLabelValues(string(job.Type), string(job.Status)).Inc()
	metrics.JobsInFlight.Set(float64(r.inFlightLocked()))
	r.logger.Info("Job completed", zap.String("job_id", job.ID))
	return []Event{
		{Name: EventJobUpdated, Job: job.Clone()},
		{Name: EventJobCompleted, Job: job.Clone()},
	}
}

// failLocked finishes a job with an error message, exactly once.
func (r *Registry) failLocked(ctx context.Context, job *domain.Job, msg string) []Event {
	if !job.Status.CanTransition(domain.StatusFailed) {
		return nil
	}
	now := time.Now().UTC()
	job.Status = domain.StatusFailed
	job.Error = msg
	job.EndTime = &now
	delete(r.transportFails, job.ID)
	r.persistLocked(ctx)

	metrics.JobTransitions.WithLabelValues(string(job.Type), string(job.Status)).Inc()
	metrics.JobsInFlight.Set(float64(r.inFlightLocked()))
	r.logger.Warn("Job failed", zap.String("job_id", job.ID), zap.String("error", msg))
	return []Event{
		{Name: EventJobUpdated, Job: job.Clone()},
		{Name: EventJobFailed, Job: job.Clone()},
	}
}

// timeoutLocked expires a job whose deadline elapsed.
func (r *Registry) timeoutLocked(ctx context.Context, job *domain.Job) []Event {
	if !job.Status.CanTransition(domain.StatusTimeout) {
		return nil
	}
	now := time.Now().UTC()
	job.Status = domain.StatusTimeout
	job.Error = "operation exceeded its time limit"
	job.EndTime = &now
	delete(r.transportFails, job.ID)
	r.persistLocked(ctx)

	metrics.JobTransitions.WithLabelValues(string(job.Type), string(job.Status)).Inc()
	metrics.JobsInFlight.Set(float64(r.inFlightLocked()))
	r.logger.Warn("Job timed out", zap.String("job_id", job.ID))
	return []Event{
		{Name: EventJobUpdated, Job: job.Clone()},
		{Name: EventJobTimeout, Job: job.Clone()},
	}
}

// persistLocked snapshots the job map to the store. Persistence is
// best-effort: failures are logged and swallowed.
func (r *Registry) persistLocked(ctx context.Context) {
	if err := r.store.Save(ctx, r.jobs); err != nil {
		r.logger.Warn("Persisting job snapshot failed", zap.Error(err))
	}
}

func (r *Registry) inFlightLocked() int {
	n := 0
	for _, job := range r.jobs {
		if !job.Status.IsTerminal() {
			n++
		}
	}
	return n
}
