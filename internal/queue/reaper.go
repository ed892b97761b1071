package queue

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"virtual_queue/internal/models"
)

// Sweep evicts called sessions that did not check in within their queue's
// no-show timeout and unloads finished sessions older than the retention
// window. It returns how many sessions became NoShow.
//
// Eviction is a conditional transition: a session that checked in or left
// in the meantime is left alone.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	var evicted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.TickConcurrency)
	for _, l := range e.loadedLanes() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			n, err := e.sweepLane(gctx, l)
			evicted.Add(int64(n))
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				e.log.WithError(err).WithField("queue_id", l.id).Warn("no-show sweep skipped")
			}
			return nil
		})
	}
	err := g.Wait()
	return int(evicted.Load()), err
}

func (e *Engine) sweepLane(ctx context.Context, l *lane) (int, error) {
	if err := e.lock(ctx, l); err != nil {
		return 0, err
	}
	now := e.clock.Now()
	timeout := l.queue.NoShowTimeout(e.cfg.NoShowTimeout)

	var overdue []*models.UserSession
	for _, s := range l.sessions {
		if s.State == models.StateCalled && s.CalledAt != nil && !now.Before(s.CalledAt.Add(timeout)) {
			overdue = append(overdue, s)
		}
	}
	slices.SortFunc(overdue, func(a, b *models.UserSession) int {
		return a.CalledAt.Compare(*b.CalledAt)
	})
	evicted := 0
	for _, s := range overdue {
		if err := e.apply(l, s, edgeTimeout, now); err != nil {
			continue
		}
		evicted++
		e.log.WithFields(logrus.Fields{
			"queue_id":   l.id,
			"session_id": s.ID,
			"called_at":  s.CalledAt.Format(time.RFC3339),
		}).Info("session marked no-show")
	}

	pruned := e.prune(l, now)
	e.unlock(l)
	e.forgetSessions(pruned)
	return evicted, nil
}

// prune drops finished sessions past the retention window from memory.
// They stay readable through the session repository.
func (e *Engine) prune(l *lane, now time.Time) []string {
	cutoff := now.Add(-e.cfg.TerminalRetention)
	var ids []string
	for id, s := range l.sessions {
		if !s.State.IsTerminal() {
			continue
		}
		if at := s.TerminatedAt(); at != nil && at.Before(cutoff) {
			delete(l.sessions, id)
			ids = append(ids, id)
		}
	}
	return ids
}
