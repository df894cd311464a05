package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/soulpit/internal/dependencies/events"
	"github.com/mcoot/soulpit/internal/model"
)

// EventRecorder is a Publisher that keeps every event for inspection
type EventRecorder struct {
	mu     sync.Mutex
	events []model.Event
}

var _ events.Publisher = (*EventRecorder)(nil)

// NewEventRecorder creates an empty EventRecorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Publish records the event
func (r *EventRecorder) Publish(_ context.Context, event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns the recorded events in publish order
func (r *EventRecorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// Types returns the types of the recorded events in publish order
func (r *EventRecorder) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]model.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
