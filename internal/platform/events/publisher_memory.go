package events

import (
	"context"
	"sync"
)

// InMemoryPublisher collects events for inspection in tests.
type InMemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewInMemoryPublisher creates an empty collecting publisher.
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Emit(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *InMemoryPublisher) Close() {}

// Events returns a copy of everything emitted so far.
func (p *InMemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
