// Package events publishes transaction lifecycle events for funds-moving
// actions. Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// Kind is the lifecycle stage an event reports.
type Kind string

const (
	KindSubmitted Kind = "submitted"
	KindConfirmed Kind = "confirmed"
	KindFailed    Kind = "failed"
)

// Event describes one transaction moving through its lifecycle.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Action     string    `json:"action"`
	Chain      string    `json:"chain"`
	ChainID    uint64    `json:"chain_id,omitempty"`
	Hash       string    `json:"hash,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Value      string    `json:"value,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps an event with a fresh id and the current time.
func New(kind Kind, action, chain string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Action:     action,
		Chain:      chain,
		OccurredAt: time.Now().UTC(),
	}
}

// Next returns a copy of e for a later lifecycle stage, with a fresh id and
// timestamp. A non-nil cause is recorded in Error.
func (e Event) Next(kind Kind, cause error) Event {
	next := e
	next.ID = uuid.NewString()
	next.Kind = kind
	next.OccurredAt = time.Now().UTC()
	next.Error = ""
	if cause != nil {
		next.Error = cause.Error()
	}
	return next
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

func encode(event Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePublishFailure, err, "encode event")
	}
	return body, nil
}
