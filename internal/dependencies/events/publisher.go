package events

import (
	"context"

	"github.com/mcoot/soulpit/internal/model"
)

// Publisher receives list events after the change that caused them has been persisted
type Publisher interface {
	Publish(ctx context.Context, event model.Event)
}

// Nop discards every event
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, model.Event) {}
