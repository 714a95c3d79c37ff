package mock

import (
	"context"
	"sync"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/store"
)

// Ensure MockStore implements store.Store.
var _ store.Store = (*MockStore)(nil)

// MockStore is an in-memory mock of the persisted job store for testing.
type MockStore struct {
	mu    sync.Mutex
	jobs  map[string]*domain.Job
	saves int

	// Hook functions for injecting errors.
	LoadFunc func(ctx context.Context) (map[string]*domain.Job, error)
	SaveFunc func(ctx context.Context, jobs map[string]*domain.Job) error
}

// NewMockStore creates a new mock store, optionally pre-seeded with jobs.
func NewMockStore(seed map[string]*domain.Job) *MockStore {
	jobs := make(map[string]*domain.Job)
	for id, job := range seed {
		jobs[id] = job.Clone()
	}
	return &MockStore{jobs: jobs}
}

func (m *MockStore) Load(ctx context.Context) (map[string]*domain.Job, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*domain.Job, len(m.jobs))
	for id, job := range m.jobs {
		out[id] = job.Clone()
	}
	return out, nil
}

func (m *MockStore) Save(ctx context.Context, jobs map[string]*domain.Job) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, jobs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = make(map[string]*domain.Job, len(jobs))
	for id, job := range jobs {
		m.jobs[id] = job.Clone()
	}
	m.saves++
	return nil
}

// Saved returns the persisted copy of one job (for test assertions).
func (m *MockStore) Saved(id string) *domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		return job.Clone()
	}
	return nil
}

// SaveCount returns how many times Save succeeded.
func (m *MockStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
