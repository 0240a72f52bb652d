package events

import (
	"context"
	"sync"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// MemoryPublisher keeps events in process, mainly for tests and the HTTP
// API's recent activity view.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	limit  int
	closed bool
}

// NewMemoryPublisher keeps at most limit events, dropping the oldest.
func NewMemoryPublisher(limit int) *MemoryPublisher {
	if limit <= 0 {
		limit = 256
	}
	return &MemoryPublisher{limit: limit}
}

// Publish records event.
func (p *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return apperrors.New(apperrors.CodePublishFailure, "publisher closed")
	}
	p.events = append(p.events, event)
	if over := len(p.events) - p.limit; over > 0 {
		p.events = append(p.events[:0:0], p.events[over:]...)
	}
	return nil
}

// Events returns a copy of the recorded events, oldest first.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Close stops accepting events.
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
