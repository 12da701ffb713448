// Package events defines the in-process event bus the modules use to talk
// to each other without importing one another.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event that crosses module boundaries.
type Event interface {
	// EventName identifies the event type and is the subscription key.
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events. Embed it and set it
// with NewBaseEvent at publish time.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a BaseEvent with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events delivered by the bus.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus dispatches events to the handlers subscribed to their name.
type Bus interface {
	// Publish delivers the event to every subscribed handler without
	// waiting for them to finish.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event and blocks until every handler
	// has returned.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name, matched against
	// Event.EventName at delivery.
	Subscribe(eventName string, handler Handler)
}
