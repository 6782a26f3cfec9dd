// Package eventbus publishes workflow audit events over watermill.
package eventbus

import (
	"context"
	"errors"

	"github.com/dukex/operion-forms/pkg/events"
)

// ErrUnknownEvent is returned for messages whose event type has no payload type.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is a typed audit event.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is the only part of the bus the form executor depends on.
type EventPublisher interface {
	// Publish sends event keyed by key, usually the workflow instance id.
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
