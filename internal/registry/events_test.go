package registry

import (
	"testing"

	"github.com/lordalex/botilito/internal/domain"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(EventJobUpdated, func(e Event) {
		got = append(got, e.Job.ID)
	})

	bus.Emit(Event{Name: EventJobUpdated, Job: &domain.Job{ID: "a"}})
	bus.Emit(Event{Name: EventJobCompleted, Job: &domain.Job{ID: "b"}})
	bus.Emit(Event{Name: EventJobUpdated, Job: &domain.Job{ID: "c"}})

	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("expected deliveries for a and c only, got %v", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	cancel := bus.Subscribe(EventJobFailed, func(e Event) { count++ })

	bus.Emit(Event{Name: EventJobFailed, Job: &domain.Job{ID: "a"}})
	cancel()
	bus.Emit(Event{Name: EventJobFailed, Job: &domain.Job{ID: "b"}})

	if count != 1 {
		t.Errorf("expected exactly one delivery, got %d", count)
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()

	first, second := 0, 0
	bus.Subscribe(EventJobTimeout, func(e Event) { first++ })
	bus.Subscribe(EventJobTimeout, func(e Event) { second++ })

	bus.Emit(Event{Name: EventJobTimeout, Job: &domain.Job{ID: "a"}})

	if first != 1 || second != 1 {
		t.Errorf("expected both subscribers to fire once, got %d and %d", first, second)
	}
}
