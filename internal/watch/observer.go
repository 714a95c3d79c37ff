// Package watch provides a call-site-scoped view over a single registry
// job. Observers do not run their own network polls; they subscribe to the
// registry's event bus and lean on its scheduler for timeout enforcement,
// so there is exactly one polling path per remote job.
package watch

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/registry"
)

// Options configures one observer.
type Options struct {
	// Enabled gates the subscription; a disabled observer only holds the
	// snapshot taken at construction.
	Enabled bool
	// Interval is the cadence of read-through refreshes from the registry,
	// covering updates that happened before the subscription was live.
	Interval time.Duration
	// Timeout, when positive, registers a scheduler deadline for the job:
	// if it is still running when the budget elapses, it transitions to
	// timeout.
	Timeout time.Duration
}

// Observer mirrors one job record from the registry.
type Observer struct {
	reg    *registry.Registry
	jobID  string
	logger *zap.Logger

	mu  sync.RWMutex
	job *domain.Job

	cancelSub func()
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// New creates an observer bound to one job id and starts mirroring it.
func New(reg *registry.Registry, jobID string, opts Options, logger *zap.Logger) *Observer {
	o := &Observer{
		reg:    reg,
		jobID:  jobID,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	if job, err := reg.Job(jobID); err == nil {
		o.job = job
	}

	if !opts.Enabled {
		return o
	}

	o.cancelSub = reg.Bus().Subscribe(registry.EventJobUpdated, func(e registry.Event) {
		if e.Job == nil || e.Job.ID != jobID {
			return
		}
		o.mu.Lock()
		o.job = e.Job.Clone()
		o.mu.Unlock()
	})

	if opts.Timeout > 0 {
		if err := reg.SetDeadline(jobID, opts.Timeout); err != nil {
			logger.Debug("Observer could not set deadline",
				zap.String("job_id", jobID),
				zap.Error(err),
			)
		}
	}

	if opts.Interval > 0 {
		go o.refreshLoop(opts.Interval)
	}

	return o
}

func (o *Observer) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			job, err := o.reg.Job(o.jobID)
			if err != nil {
				continue
			}
			o.mu.Lock()
			o.job = job
			o.mu.Unlock()
			if job.Status.IsTerminal() {
				return
			}
		}
	}
}

// Job returns the current mirrored record, or nil if the job was never seen.
func (o *Observer) Job() *domain.Job {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.job == nil {
		return nil
	}
	return o.job.Clone()
}

// IsLoading reports whether the job is still pending or processing.
func (o *Observer) IsLoading() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.job == nil {
		return false
	}
	return o.job.Status == domain.StatusPending || o.job.Status == domain.StatusProcessing
}

// IsError reports whether the job ended in failed or timeout.
func (o *Observer) IsError() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.job == nil {
		return false
	}
	return o.job.Status == domain.StatusFailed || o.job.Status == domain.StatusTimeout
}

// Stop unsubscribes from the bus and halts the refresh loop.
func (o *Observer) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
		if o.cancelSub != nil {
			o.cancelSub()
		}
	})
}
