package queue

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/sirupsen/logrus"

	"virtual_queue/internal/events"
	"virtual_queue/internal/metrics"
	"virtual_queue/internal/models"
)

const maxIdentifierLen = 256

// JoinRequest asks for a place in a queue.
type JoinRequest struct {
	TenantID       string
	QueueID        string
	UserIdentifier string
	PriorityTier   string
	Metadata       map[string]string
}

func (r JoinRequest) validate() error {
	switch {
	case strings.TrimSpace(r.TenantID) == "":
		return fmt.Errorf("%w: tenant id is required", ErrValidation)
	case strings.TrimSpace(r.QueueID) == "":
		return fmt.Errorf("%w: queue id is required", ErrValidation)
	case strings.TrimSpace(r.UserIdentifier) == "":
		return fmt.Errorf("%w: user identifier is required", ErrValidation)
	case len(r.UserIdentifier) > maxIdentifierLen:
		return fmt.Errorf("%w: user identifier longer than %d bytes", ErrValidation, maxIdentifierLen)
	}
	return nil
}

// Join admits a user into a queue in the Waiting state.
//
// A user that already holds an active session on the queue gets that
// session back unchanged, so client retries are safe. The queue must be
// active and open, the tier must be in its policy, and the queue must
// have room under MaxActive.
func (e *Engine) Join(ctx context.Context, req JoinRequest) (*models.UserSession, error) {
	s, err := e.join(ctx, req)
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrCapacityExceeded):
		result = "capacity_exceeded"
	case errors.Is(err, ErrBusy):
		result = "busy"
	default:
		result = "rejected"
	}
	metrics.Joins.WithLabelValues(result).Inc()
	return s, err
}

func (e *Engine) join(ctx context.Context, req JoinRequest) (*models.UserSession, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	l, err := e.lane(ctx, req.QueueID)
	if err != nil {
		return nil, err
	}
	if err := e.lock(ctx, l); err != nil {
		return nil, err
	}
	defer e.unlock(l)

	if l.queue.TenantID != req.TenantID {
		return nil, fmt.Errorf("%w: queue %s", ErrNotFound, req.QueueID)
	}
	if id, ok := l.active[req.UserIdentifier]; ok {
		return l.snapshot(l.sessions[id]), nil
	}

	now := e.clock.Now()
	if !l.queue.IsOpenAt(now, l.loc) {
		return nil, fmt.Errorf("%w: queue %s", ErrQueueClosed, req.QueueID)
	}
	tier, err := l.ranker.Resolve(req.PriorityTier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if limit := l.queue.MaxActive; limit > 0 && l.activeCount() >= limit {
		return nil, fmt.Errorf("%w: queue %s holds %d active sessions", ErrCapacityExceeded, req.QueueID, limit)
	}

	l.seq++
	key, err := l.ranker.Key(tier, now, l.seq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	s := &models.UserSession{
		ID:             models.NewID(),
		TenantID:       req.TenantID,
		QueueID:        req.QueueID,
		UserIdentifier: req.UserIdentifier,
		PriorityTier:   tier,
		State:          models.StateWaiting,
		Seq:            l.seq,
		EnqueuedAt:     now,
	}
	if len(req.Metadata) > 0 {
		s.Metadata = maps.Clone(req.Metadata)
	}
	l.line.Insert(s.ID, key)
	l.sessions[s.ID] = s
	l.active[s.UserIdentifier] = s.ID
	e.indexSession(s.ID, l.id)

	eff := e.newEffect(l, s, events.SessionEnqueued, "", now)
	l.record(eff)
	metrics.Transitions.WithLabelValues(string(models.StateWaiting)).Inc()

	e.log.WithFields(logrus.Fields{
		"queue_id":   l.id,
		"session_id": s.ID,
		"tier":       tier,
		"rank":       eff.session.Rank,
	}).Debug("session enqueued")
	return eff.session.Clone(), nil
}

// Leave drops a waiting or called session. Sessions behind it move up one
// place.
func (e *Engine) Leave(ctx context.Context, sessionID string) error {
	_, err := e.transition(ctx, sessionID, edgeLeave)
	return err
}
