package queue

import (
	"context"
	"fmt"
	"slices"
	"time"

	"virtual_queue/internal/events"
	"virtual_queue/internal/metrics"
	"virtual_queue/internal/models"
)

// edge is one legal transition of the session lifecycle.
type edge struct {
	from  []models.State
	to    models.State
	event events.Type
}

var (
	edgeRelease  = edge{from: []models.State{models.StateWaiting}, to: models.StateCalled, event: events.SessionCalled}
	edgeCheckIn  = edge{from: []models.State{models.StateCalled}, to: models.StateServing, event: events.SessionServing}
	edgeComplete = edge{from: []models.State{models.StateServing}, to: models.StateCompleted, event: events.SessionCompleted}
	edgeLeave    = edge{from: []models.State{models.StateWaiting, models.StateCalled}, to: models.StateDropped, event: events.SessionLeft}
	edgeTimeout  = edge{from: []models.State{models.StateCalled}, to: models.StateNoShow, event: events.SessionNoShow}
)

// apply moves s along ed if s is still in one of the edge's source states.
// The caller holds the lane lock. A session whose state changed since the
// caller looked at it gets ErrInvalidState and nothing is modified.
func (e *Engine) apply(l *lane, s *models.UserSession, ed edge, now time.Time) error {
	from := s.State
	if !slices.Contains(ed.from, from) {
		return fmt.Errorf("%w: session %s is %s, cannot become %s", ErrInvalidState, s.ID, from, ed.to)
	}

	switch from {
	case models.StateWaiting:
		l.line.Remove(s.ID)
	case models.StateCalled:
		l.called--
	case models.StateServing:
		l.serving--
	}
	switch ed.to {
	case models.StateCalled:
		l.called++
	case models.StateServing:
		l.serving++
	}

	s.State = ed.to
	at := now
	switch ed.to {
	case models.StateCalled:
		s.CalledAt = &at
	case models.StateServing:
		s.ServedAt = &at
	case models.StateCompleted:
		s.CompletedAt = &at
		if s.ServedAt != nil {
			l.stats.add(at.Sub(*s.ServedAt))
		}
	case models.StateDropped, models.StateNoShow:
		s.ExitedAt = &at
	}
	if ed.to.IsTerminal() {
		delete(l.active, s.UserIdentifier)
	}

	l.record(e.newEffect(l, s, ed.event, from, now))
	metrics.Transitions.WithLabelValues(string(ed.to)).Inc()
	return nil
}

// transition applies ed to one session and returns its snapshot.
func (e *Engine) transition(ctx context.Context, sessionID string, ed edge) (*models.UserSession, error) {
	var out *models.UserSession
	err := e.withSession(ctx, sessionID, func(l *lane, s *models.UserSession) error {
		if err := e.apply(l, s, ed, e.clock.Now()); err != nil {
			return err
		}
		out = l.snapshot(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithField("session_id", sessionID).WithField("state", out.State).Debug("session transition")
	return out, nil
}

// CheckIn marks a called session as being served.
func (e *Engine) CheckIn(ctx context.Context, sessionID string) (*models.UserSession, error) {
	return e.transition(ctx, sessionID, edgeCheckIn)
}

// Complete finishes service and frees the session's slot.
func (e *Engine) Complete(ctx context.Context, sessionID string) (*models.UserSession, error) {
	return e.transition(ctx, sessionID, edgeComplete)
}

// Reprioritize moves a waiting session to another tier. It keeps its
// original arrival among sessions of the new tier.
func (e *Engine) Reprioritize(ctx context.Context, sessionID, tier string) (*models.UserSession, error) {
	var out *models.UserSession
	err := e.withSession(ctx, sessionID, func(l *lane, s *models.UserSession) error {
		if s.State != models.StateWaiting {
			return fmt.Errorf("%w: session %s is %s, only waiting sessions can be reprioritized", ErrInvalidState, s.ID, s.State)
		}
		resolved, err := l.ranker.Resolve(tier)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if resolved == s.PriorityTier {
			out = l.snapshot(s)
			return nil
		}
		key, err := l.ranker.Key(resolved, s.EnqueuedAt, s.Seq)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		s.PriorityTier = resolved
		l.line.Insert(s.ID, key)
		l.record(e.newEffect(l, s, events.SessionReprioritized, s.State, e.clock.Now()))
		out = l.snapshot(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
