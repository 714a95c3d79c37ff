package registry

import (
	"sync"

	"github.com/lordalex/botilito/internal/domain"
)

// Event names emitted by the registry. Every mutation emits EventJobUpdated
// plus the status-specific event for the transition, in that order.
const (
	EventJobAdded     = "job:added"
	EventJobUpdated   = "job:updated"
	EventJobCompleted = "job:completed"
	EventJobFailed    = "job:failed"
	EventJobTimeout   = "job:timeout"
	EventJobsCleared  = "jobs:cleared"
)

// Event carries the full updated job record. Job is nil for EventJobsCleared.
type Event struct {
	Name string
	Job  *domain.Job
}

// Handler receives events synchronously; it must not block.
type Handler func(Event)

// Bus is a synchronous fire-and-forget fan-out keyed by event name.
// Emission order for a single job matches mutation order; by the time a
// handler runs, the persisted store already reflects the new state.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for one event name and returns a cancel
// function that removes it.
func (b *Bus) Subscribe(name string, h Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[name] == nil {
		b.subs[name] = make(map[int]Handler)
	}
	b.subs[name][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[name], id)
	}
}

// Emit delivers the event to every subscriber of its name, synchronously.
// There is no acknowledgment and no backpressure.
func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[event.Name]))
	for _, h := range b.subs[event.Name] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
