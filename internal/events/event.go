// Package events defines the lifecycle events the queue engine emits and
// the Sink contract that notification and analytics consumers implement.
package events

import (
	"context"
	"errors"
	"time"

	"virtual_queue/internal/models"
)

// Type names a lifecycle event.
type Type string

const (
	SessionEnqueued      Type = "session.enqueued"
	SessionCalled        Type = "session.called"
	SessionServing       Type = "session.serving"
	SessionCompleted     Type = "session.completed"
	SessionLeft          Type = "session.left"
	SessionNoShow        Type = "session.no_show"
	SessionReprioritized Type = "session.reprioritized"
)

// Event is one committed change to a session.
type Event struct {
	ID            string              `json:"id"`
	Type          Type                `json:"type"`
	TenantID      string              `json:"tenant_id"`
	QueueID       string              `json:"queue_id"`
	SessionID     string              `json:"session_id"`
	From          models.State        `json:"from,omitempty"`
	To            models.State        `json:"to"`
	Rank          int                 `json:"rank"`
	EstimatedWait time.Duration       `json:"estimated_wait"`
	OccurredAt    time.Time           `json:"occurred_at"`
	Session       *models.UserSession `json:"session"`
}

// Sink receives events after the queue lock has been released. A Sink
// error never rolls back the transition that produced the event.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, evt Event) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, evt Event) error { return f(ctx, evt) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// Multi delivers to every sink in order and joins their errors. One
// failing sink does not stop delivery to the rest.
type Multi []Sink

// Publish fans evt out to all sinks.
func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
