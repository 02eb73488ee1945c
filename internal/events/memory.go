package events

import (
	"context"
	"sync"
)

// MemoryPublisher records events for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
	// Fail makes Publish behave like an unreachable broker. Per the
	// best-effort contract the event is dropped silently either way.
	Fail bool
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail {
		return
	}
	p.events = append(p.events, event)
}

func (p *MemoryPublisher) Events() []DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]DomainEvent{}, p.events...)
}

var _ Publisher = (*MemoryPublisher)(nil)
