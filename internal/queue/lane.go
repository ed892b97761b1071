package queue

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"virtual_queue/internal/events"
	"virtual_queue/internal/metrics"
	"virtual_queue/internal/models"
	"virtual_queue/internal/position"
)

// lane is the in-memory state of one queue. Every field except pending is
// guarded by sem; the engine holds sem for the whole of a mutation.
type lane struct {
	id  string
	sem *semaphore.Weighted

	queue    *models.Queue
	loc      *time.Location // operating hours zone, resolved on load
	ranker   *position.Ranker
	line     *position.Line
	sessions map[string]*models.UserSession // active plus recently finished
	active   map[string]string              // user identifier -> session id
	called   int
	serving  int
	seq      uint64
	limiter  *rate.Limiter
	stats    serviceStats

	// pending holds side effects committed under sem, flushed to the
	// outbox in commit order once sem is released.
	pendMu  sync.Mutex
	pending []effect
	flushMu sync.Mutex
}

// effect is one committed change: the snapshot to persist and the event
// to publish.
type effect struct {
	session *models.UserSession
	event   events.Event
}

func newLane(q *models.Queue, tick time.Duration, now time.Time) *lane {
	l := &lane{
		id:       q.ID,
		sem:      semaphore.NewWeighted(1),
		queue:    q,
		loc:      hoursLocation(q),
		ranker:   position.NewRanker(q.PriorityPolicy, q.DefaultTier),
		line:     position.NewLine(),
		sessions: make(map[string]*models.UserSession),
		active:   make(map[string]string),
	}
	l.limiter = rate.NewLimiter(releaseLimit(q), releaseBurst(q, tick))
	// Start with a full bucket so the first tick can release immediately.
	l.limiter.SetBurstAt(now, releaseBurst(q, tick))
	return l
}

// hoursLocation resolves the queue's operating hours zone. Queues are
// validated before they reach a lane, so the UTC fallback is not expected.
func hoursLocation(q *models.Queue) *time.Location {
	loc, err := q.OperatingHours.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}

// releaseLimit converts the per-minute release rate to tokens per second.
func releaseLimit(q *models.Queue) rate.Limit {
	if q.ReleaseRatePerMinute <= 0 {
		return 0
	}
	return rate.Limit(q.ReleaseRatePerMinute / 60)
}

// releaseBurst is the most a single tick may release: the rate's share of
// one tick interval, rounded down, but never below one so slow queues
// still release once enough credit has built up.
func releaseBurst(q *models.Queue, tick time.Duration) int {
	per := q.ReleaseRatePerMinute * tick.Seconds() / 60
	return max(1, int(math.Floor(per)))
}

func (l *lane) activeCount() int {
	return l.line.Len() + l.called + l.serving
}

func (l *lane) slotsAvailable() int {
	return max(0, l.queue.Capacity-l.called-l.serving)
}

// rankOf returns the waiting rank of s, or 0 when s is not waiting.
func (l *lane) rankOf(s *models.UserSession) int {
	if s.State != models.StateWaiting {
		return 0
	}
	r, _ := l.line.Rank(s.ID)
	return r
}

// snapshot copies s with its current rank filled in.
func (l *lane) snapshot(s *models.UserSession) *models.UserSession {
	cp := s.Clone()
	cp.Rank = l.rankOf(s)
	return cp
}

// averageService is the moving mean of recent service durations.
func (l *lane) averageService(fallback time.Duration) time.Duration {
	return l.stats.mean(l.queue.ServiceDuration(fallback))
}

func (l *lane) record(eff effect) {
	l.pendMu.Lock()
	l.pending = append(l.pending, eff)
	l.pendMu.Unlock()
}

func (l *lane) drainPending() []effect {
	l.pendMu.Lock()
	defer l.pendMu.Unlock()
	batch := l.pending
	l.pending = nil
	return batch
}

// lock takes the lane semaphore, giving up with ErrBusy after timeout.
func (e *Engine) lock(ctx context.Context, l *lane) error {
	lctx, cancel := context.WithTimeout(ctx, e.cfg.LockTimeout)
	defer cancel()
	if err := l.sem.Acquire(lctx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.LockBusy.Inc()
		return fmt.Errorf("%w: queue %s is locked", ErrBusy, l.id)
	}
	return nil
}

// unlock releases the lane and hands its committed effects to the outbox.
// The flush mutex keeps batches from different callers in commit order.
func (e *Engine) unlock(l *lane) {
	metrics.Waiting.WithLabelValues(l.id).Set(float64(l.line.Len()))
	l.sem.Release(1)

	l.flushMu.Lock()
	defer l.flushMu.Unlock()
	if batch := l.drainPending(); len(batch) > 0 {
		e.outbox.enqueue(batch)
	}
}

const statsWindow = 50

// serviceStats keeps the last statsWindow service durations.
type serviceStats struct {
	samples [statsWindow]time.Duration
	n, next int
}

func (s *serviceStats) add(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.samples[s.next] = d
	s.next = (s.next + 1) % statsWindow
	if s.n < statsWindow {
		s.n++
	}
}

func (s *serviceStats) mean(fallback time.Duration) time.Duration {
	if s.n == 0 {
		return fallback
	}
	var sum time.Duration
	for i := range s.n {
		sum += s.samples[i]
	}
	return sum / time.Duration(s.n)
}
