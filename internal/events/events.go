// Package events publishes domain events describing committed state changes.
// Delivery is best-effort: events are a notification side-channel,
// not part of the transactional contract, so publication failures are logged
// and swallowed. Idempotency is the subscriber's problem.
package events

import (
	"context"
	"time"
)

// DomainEvent is one notification. Exchange names and routing keys follow the
// platform convention, e.g. exchange "etablissement.events" with routing key
// "etablissement.status.changed".
type DomainEvent struct {
	Type       string
	Exchange   string
	RoutingKey string
	OccurredAt time.Time
	Data       map[string]any
}

// envelope is the wire format subscribers receive.
type envelope struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

func (e DomainEvent) envelope() envelope {
	return envelope{
		Type:      e.Type,
		Timestamp: e.OccurredAt.UTC().Format(time.RFC3339),
		Data:      e.Data,
	}
}

// Publisher delivers events best-effort. Implementations must never surface
// transport failures to the caller.
type Publisher interface {
	Publish(ctx context.Context, event DomainEvent)
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, DomainEvent) {}
