package testutil

import (
	"context"
	"sync"

	"github.com/streamforge/billing/internal/domain/events"
)

// InMemoryPublisher captures published events for assertions.
type InMemoryPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

var _ events.Publisher = (*InMemoryPublisher)(nil)

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishAll(ctx, []events.DomainEvent{event})
}

func (p *InMemoryPublisher) PublishAll(_ context.Context, evts []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

// Events returns a copy of everything published so far, in order.
func (p *InMemoryPublisher) Events() []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsNamed returns the published events with the given name, in order.
func (p *InMemoryPublisher) EventsNamed(name string) []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.DomainEvent, 0)
	for _, e := range p.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears the captured events.
func (p *InMemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
