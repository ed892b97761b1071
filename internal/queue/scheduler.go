package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"virtual_queue/internal/metrics"
	"virtual_queue/internal/models"
)

// Tick runs one release round for a queue: it calls as many waiting
// sessions as both free service slots and the queue's release rate allow.
// A queue with a zero release rate only releases through ReleaseUsers.
func (e *Engine) Tick(ctx context.Context, queueID string) ([]*models.UserSession, error) {
	l, err := e.lane(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if err := e.lock(ctx, l); err != nil {
		return nil, err
	}
	defer e.unlock(l)

	if l.queue.ReleaseRatePerMinute <= 0 {
		return nil, nil
	}
	now := e.clock.Now()
	tokens := int(math.Floor(l.limiter.TokensAt(now)))
	budget := min(l.slotsAvailable(), tokens, l.line.Len())
	if budget <= 0 {
		return nil, nil
	}
	released := e.release(l, budget)
	if len(released) > 0 {
		l.limiter.AllowN(now, len(released))
		metrics.Releases.WithLabelValues("scheduler").Add(float64(len(released)))
	}
	return released, nil
}

// ReleaseUsers calls up to count waiting sessions regardless of the
// release rate. It never exceeds the free service slots.
func (e *Engine) ReleaseUsers(ctx context.Context, queueID string, count int) ([]*models.UserSession, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: release count must be positive", ErrValidation)
	}
	l, err := e.lane(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if err := e.lock(ctx, l); err != nil {
		return nil, err
	}
	defer e.unlock(l)

	budget := min(l.slotsAvailable(), count, l.line.Len())
	if budget <= 0 {
		return nil, nil
	}
	released := e.release(l, budget)
	metrics.Releases.WithLabelValues("manual").Add(float64(len(released)))
	e.log.WithFields(logrus.Fields{
		"queue_id":  queueID,
		"requested": count,
		"released":  len(released),
	}).Info("manual release")
	return released, nil
}

// release pops up to n sessions from the head of the line. The caller
// holds the lane lock.
func (e *Engine) release(l *lane, n int) []*models.UserSession {
	now := e.clock.Now()
	ids := l.line.Head(n)
	out := make([]*models.UserSession, 0, len(ids))
	for _, id := range ids {
		s := l.sessions[id]
		if err := e.apply(l, s, edgeRelease, now); err != nil {
			e.log.WithError(err).WithField("session_id", id).Error("release of head session failed")
			continue
		}
		out = append(out, l.snapshot(s))
	}
	return out
}

// TickAll ticks every loaded queue, a bounded number at a time. Failures
// of single queues are logged and skipped; the next round catches up.
func (e *Engine) TickAll(ctx context.Context) (int, error) {
	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.TickConcurrency)
	for _, l := range e.loadedLanes() {
		if gctx.Err() != nil {
			break
		}
		id := l.id
		g.Go(func() error {
			released, err := e.Tick(gctx, id)
			switch {
			case err == nil:
				total.Add(int64(len(released)))
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				e.log.WithError(err).WithField("queue_id", id).Warn("release tick skipped")
			}
			return nil
		})
	}
	err := g.Wait()
	if n := total.Load(); n > 0 {
		e.log.WithField("released", n).Debug("release round finished")
	}
	return int(total.Load()), err
}
