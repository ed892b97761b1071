// Package queue is the admission and release engine behind virtual queues.
//
// Each queue is served by a lane: an in-memory waiting line plus the
// queue's active sessions, guarded by its own lock. Joins, leaves,
// releases, check-ins and no-show evictions for one queue are serialized
// on that lock; different queues never contend. Persistence and
// notification happen after the lock is released, through an outbox that
// preserves commit order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"virtual_queue/internal/clock"
	"virtual_queue/internal/events"
	"virtual_queue/internal/logger"
	"virtual_queue/internal/models"
	"virtual_queue/internal/position"
)

// Engine coordinates admission, release and the session lifecycle for all
// queues. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	queues   QueueRepository
	sessions SessionRepository
	clock    clock.Clock
	sink     events.Sink
	log      logrus.FieldLogger
	outbox   *outbox

	mu    sync.RWMutex
	lanes map[string]*lane
	index map[string]string // session id -> queue id
}

// Status is a session's current view: where it stands and how long it may
// still wait.
type Status struct {
	Session       *models.UserSession `json:"session"`
	Rank          int                 `json:"rank"`
	State         models.State        `json:"state"`
	EstimatedWait time.Duration       `json:"estimated_wait"`
}

// QueueSnapshot lists one queue's active sessions.
type QueueSnapshot struct {
	Queue          *models.Queue         `json:"queue"`
	Waiting        []*models.UserSession `json:"waiting"`
	Called         []*models.UserSession `json:"called"`
	Serving        []*models.UserSession `json:"serving"`
	SlotsAvailable int                   `json:"slots_available"`
	AverageService time.Duration         `json:"average_service"`
}

// New creates an Engine. The outbox goroutine starts immediately; call
// Stop to drain it.
func New(queues QueueRepository, sessions SessionRepository, opts ...Option) (*Engine, error) {
	if queues == nil || sessions == nil {
		return nil, errors.New("queue: repositories are required")
	}
	e := &Engine{
		cfg:      DefaultConfig(),
		queues:   queues,
		sessions: sessions,
		clock:    clock.Real{},
		sink:     events.Discard,
		log:      logger.Logger,
		lanes:    make(map[string]*lane),
		index:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = events.Discard
	}
	if e.log == nil {
		e.log = logger.Logger
	}
	if e.clock == nil {
		e.clock = clock.Real{}
	}
	e.log = e.log.WithField("component", "queue-engine")
	e.outbox = newOutbox(sessions, e.sink, e.log, e.cfg)
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Flush blocks until every side effect committed so far has been
// persisted and published.
func (e *Engine) Flush(ctx context.Context) error {
	return e.outbox.flush(ctx)
}

// Stop drains the outbox. If ctx expires first, pending side effects are
// dropped and Stop returns ctx.Err(). Operations after Stop still mutate
// state but their side effects are dropped.
func (e *Engine) Stop(ctx context.Context) error {
	return e.outbox.close(ctx)
}

// lane returns the loaded lane for queueID, loading its configuration from
// the repository on first use.
func (e *Engine) lane(ctx context.Context, queueID string) (*lane, error) {
	if queueID == "" {
		return nil, fmt.Errorf("%w: queue id is required", ErrValidation)
	}
	e.mu.RLock()
	l := e.lanes[queueID]
	e.mu.RUnlock()
	if l != nil {
		return l, nil
	}

	q, err := e.loadQueue(ctx, queueID)
	if err != nil {
		return nil, err
	}
	fresh := newLane(q, e.cfg.TickInterval, e.clock.Now())

	e.mu.Lock()
	defer e.mu.Unlock()
	if l = e.lanes[queueID]; l != nil {
		return l, nil
	}
	e.lanes[queueID] = fresh
	e.log.WithFields(logrus.Fields{"queue_id": queueID, "tenant_id": q.TenantID}).Debug("queue loaded")
	return fresh, nil
}

func (e *Engine) loadQueue(ctx context.Context, queueID string) (*models.Queue, error) {
	q, err := e.queues.GetQueue(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if q.ArchivedAt != nil {
		return nil, fmt.Errorf("%w: queue %s is archived", ErrNotFound, queueID)
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: queue %s: %v", ErrValidation, queueID, err)
	}
	return q, nil
}

func (e *Engine) loadedLanes() []*lane {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*lane, 0, len(e.lanes))
	for _, l := range e.lanes {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b *lane) int { return strings.Compare(a.id, b.id) })
	return out
}

func (e *Engine) indexSession(sessionID, queueID string) {
	e.mu.Lock()
	e.index[sessionID] = queueID
	e.mu.Unlock()
}

func (e *Engine) forgetSessions(ids []string) {
	if len(ids) == 0 {
		return
	}
	e.mu.Lock()
	for _, id := range ids {
		delete(e.index, id)
	}
	e.mu.Unlock()
}

// withSession locks the lane owning sessionID and runs fn. Sessions that
// are no longer in memory are resolved against the repository.
func (e *Engine) withSession(ctx context.Context, sessionID string, fn func(l *lane, s *models.UserSession) error) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrValidation)
	}
	e.mu.RLock()
	queueID, ok := e.index[sessionID]
	l := e.lanes[queueID]
	e.mu.RUnlock()
	if !ok || l == nil {
		return e.missing(ctx, sessionID)
	}

	if err := e.lock(ctx, l); err != nil {
		return err
	}
	s := l.sessions[sessionID]
	if s == nil {
		e.unlock(l)
		return e.missing(ctx, sessionID)
	}
	err := fn(l, s)
	e.unlock(l)
	return err
}

// missing explains why sessionID is not in memory.
func (e *Engine) missing(ctx context.Context, sessionID string) error {
	s, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.State.IsTerminal() {
		return fmt.Errorf("%w: session %s is %s", ErrInvalidState, sessionID, s.State)
	}
	return fmt.Errorf("%w: session %s is not loaded", ErrNotFound, sessionID)
}

// newEffect builds the snapshot and event for a change to s.
func (e *Engine) newEffect(l *lane, s *models.UserSession, typ events.Type, from models.State, now time.Time) effect {
	snap := l.snapshot(s)
	return effect{
		session: snap,
		event: events.Event{
			ID:            models.NewID(),
			Type:          typ,
			TenantID:      s.TenantID,
			QueueID:       s.QueueID,
			SessionID:     s.ID,
			From:          from,
			To:            s.State,
			Rank:          snap.Rank,
			EstimatedWait: time.Duration(snap.Rank) * l.averageService(e.cfg.ServiceDuration),
			OccurredAt:    now,
			Session:       snap,
		},
	}
}

// GetStatus returns the session's state, rank and estimated wait.
func (e *Engine) GetStatus(ctx context.Context, sessionID string) (*Status, error) {
	var st *Status
	err := e.withSession(ctx, sessionID, func(l *lane, s *models.UserSession) error {
		snap := l.snapshot(s)
		st = &Status{
			Session:       snap,
			Rank:          snap.Rank,
			State:         snap.State,
			EstimatedWait: time.Duration(snap.Rank) * l.averageService(e.cfg.ServiceDuration),
		}
		return nil
	})
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrInvalidState) {
		return nil, err
	}
	// Finished sessions that left memory are still reportable.
	s, gerr := e.sessions.GetSession(ctx, sessionID)
	if gerr != nil {
		return nil, gerr
	}
	s.Rank = 0
	return &Status{Session: s, State: s.State}, nil
}

// QueueStatus lists the active sessions of a queue in service order.
func (e *Engine) QueueStatus(ctx context.Context, queueID string) (*QueueSnapshot, error) {
	l, err := e.lane(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if err := e.lock(ctx, l); err != nil {
		return nil, err
	}
	defer e.unlock(l)

	q := *l.queue
	snap := &QueueSnapshot{
		Queue:          &q,
		Waiting:        make([]*models.UserSession, 0, l.line.Len()),
		SlotsAvailable: l.slotsAvailable(),
		AverageService: l.averageService(e.cfg.ServiceDuration),
	}
	for _, id := range l.line.IDs() {
		snap.Waiting = append(snap.Waiting, l.snapshot(l.sessions[id]))
	}
	for _, s := range l.sessions {
		switch s.State {
		case models.StateCalled:
			snap.Called = append(snap.Called, l.snapshot(s))
		case models.StateServing:
			snap.Serving = append(snap.Serving, l.snapshot(s))
		}
	}
	byTime := func(at func(*models.UserSession) *time.Time) func(a, b *models.UserSession) int {
		return func(a, b *models.UserSession) int { return at(a).Compare(*at(b)) }
	}
	slices.SortFunc(snap.Called, byTime(func(s *models.UserSession) *time.Time { return s.CalledAt }))
	slices.SortFunc(snap.Serving, byTime(func(s *models.UserSession) *time.Time { return s.ServedAt }))
	return snap, nil
}

// History lists a queue's stored sessions, finished ones included, in
// arrival order and optionally filtered by state. It reads the session
// repository, so transitions still in the outbox are not visible yet.
func (e *Engine) History(ctx context.Context, queueID string, states ...models.State) ([]*models.UserSession, error) {
	if queueID == "" {
		return nil, fmt.Errorf("%w: queue id is required", ErrValidation)
	}
	for _, st := range states {
		if !st.IsActive() && !st.IsTerminal() {
			return nil, fmt.Errorf("%w: unknown state %q", ErrValidation, st)
		}
	}
	if _, err := e.queues.GetQueue(ctx, queueID); err != nil {
		return nil, err
	}
	list, err := e.sessions.ListSessions(ctx, queueID, states...)
	if err != nil {
		return nil, fmt.Errorf("list sessions of %s: %w", queueID, err)
	}
	return list, nil
}

// UserSessions returns the active sessions a user holds across loaded
// queues of a tenant.
func (e *Engine) UserSessions(ctx context.Context, tenantID, userIdentifier string) ([]*models.UserSession, error) {
	if userIdentifier == "" {
		return nil, fmt.Errorf("%w: user identifier is required", ErrValidation)
	}
	var out []*models.UserSession
	for _, l := range e.loadedLanes() {
		if err := e.lock(ctx, l); err != nil {
			return nil, err
		}
		if l.queue.TenantID == tenantID {
			if id, ok := l.active[userIdentifier]; ok {
				out = append(out, l.snapshot(l.sessions[id]))
			}
		}
		e.unlock(l)
	}
	return out, nil
}

// Restore rebuilds lanes from the active sessions in the repository. It is
// meant to run once at startup before traffic is accepted.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	stored, err := e.sessions.ListActiveSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active sessions: %w", err)
	}
	byQueue := make(map[string][]*models.UserSession)
	for _, s := range stored {
		byQueue[s.QueueID] = append(byQueue[s.QueueID], s)
	}

	restored := 0
	for queueID, list := range byQueue {
		l, err := e.lane(ctx, queueID)
		if err != nil {
			e.log.WithError(err).WithField("queue_id", queueID).Warn("skipping sessions of unloadable queue")
			continue
		}
		if err := e.lock(ctx, l); err != nil {
			return restored, err
		}
		for _, s := range list {
			if e.restoreSession(l, s) {
				restored++
			}
		}
		e.unlock(l)
	}
	e.log.WithField("sessions", restored).Info("engine state restored")
	return restored, nil
}

func (e *Engine) restoreSession(l *lane, s *models.UserSession) bool {
	if _, dup := l.active[s.UserIdentifier]; dup || l.sessions[s.ID] != nil {
		e.log.WithFields(logrus.Fields{"queue_id": l.id, "session_id": s.ID}).Warn("duplicate active session ignored on restore")
		return false
	}
	s = s.Clone()
	switch s.State {
	case models.StateWaiting:
		l.line.Insert(s.ID, e.keyFor(l, s))
	case models.StateCalled:
		l.called++
	case models.StateServing:
		l.serving++
	default:
		return false
	}
	l.seq = max(l.seq, s.Seq)
	l.sessions[s.ID] = s
	l.active[s.UserIdentifier] = s.ID
	e.indexSession(s.ID, l.id)
	return true
}

// keyFor computes the line key of s, falling back to the default tier when
// its tier was removed from the policy.
func (e *Engine) keyFor(l *lane, s *models.UserSession) position.Key {
	key, err := l.ranker.Key(s.PriorityTier, s.EnqueuedAt, s.Seq)
	if err == nil {
		return key
	}
	tier, _ := l.ranker.Resolve("")
	e.log.WithFields(logrus.Fields{"queue_id": l.id, "session_id": s.ID, "tier": s.PriorityTier}).
		Warn("tier no longer in policy, using default")
	s.PriorityTier = tier
	key, _ = l.ranker.Key(tier, s.EnqueuedAt, s.Seq)
	return key
}

// ReloadQueue re-reads a queue's configuration. Waiting sessions are
// re-ranked if the priority policy changed.
func (e *Engine) ReloadQueue(ctx context.Context, queueID string) error {
	q, err := e.loadQueue(ctx, queueID)
	if err != nil {
		return err
	}
	l, err := e.lane(ctx, queueID)
	if err != nil {
		return err
	}
	if err := e.lock(ctx, l); err != nil {
		return err
	}
	defer e.unlock(l)
	e.reconfigure(l, q)
	return nil
}

func (e *Engine) reconfigure(l *lane, q *models.Queue) {
	now := e.clock.Now()
	policyChanged := !slices.Equal(l.ranker.Policy(), q.PriorityPolicy) || l.queue.DefaultTier != q.DefaultTier
	l.queue = q
	l.loc = hoursLocation(q)
	l.limiter.SetLimitAt(now, releaseLimit(q))
	l.limiter.SetBurstAt(now, releaseBurst(q, e.cfg.TickInterval))
	if !policyChanged {
		return
	}
	l.ranker = position.NewRanker(q.PriorityPolicy, q.DefaultTier)
	waiting := l.line.IDs()
	l.line = position.NewLine()
	for _, id := range waiting {
		s := l.sessions[id]
		l.line.Insert(id, e.keyFor(l, s))
	}
}

// DeactivateQueue stops admission. Sessions already in the queue keep
// draining through release, check-in and completion.
func (e *Engine) DeactivateQueue(ctx context.Context, queueID string) error {
	l, err := e.lane(ctx, queueID)
	if err != nil {
		return err
	}
	if err := e.lock(ctx, l); err != nil {
		return err
	}
	q := *l.queue
	e.unlock(l)

	q.IsActive = false
	if err := e.queues.SaveQueue(ctx, &q); err != nil {
		return fmt.Errorf("save deactivated queue: %w", err)
	}

	if err := e.lock(ctx, l); err != nil {
		return err
	}
	cur := *l.queue
	cur.IsActive = false
	l.queue = &cur
	e.unlock(l)
	e.log.WithField("queue_id", queueID).Info("queue deactivated")
	return nil
}

// ArchiveDrained archives every loaded, deactivated queue that no longer
// has active sessions and unloads it. It returns the archived queue ids.
func (e *Engine) ArchiveDrained(ctx context.Context) ([]string, error) {
	var archived []string
	for _, l := range e.loadedLanes() {
		if err := e.lock(ctx, l); err != nil {
			if errors.Is(err, ErrBusy) {
				continue
			}
			return archived, err
		}
		drained := !l.queue.IsActive && l.activeCount() == 0
		var ids []string
		if drained {
			now := e.clock.Now()
			l.queue.ArchivedAt = &now
			ids = make([]string, 0, len(l.sessions))
			for id := range l.sessions {
				ids = append(ids, id)
			}
			e.mu.Lock()
			delete(e.lanes, l.id)
			e.mu.Unlock()
		}
		e.unlock(l)
		if !drained {
			continue
		}
		e.forgetSessions(ids)
		if err := e.queues.ArchiveQueue(ctx, l.id); err != nil {
			e.log.WithError(err).WithField("queue_id", l.id).Error("archive queue")
			continue
		}
		archived = append(archived, l.id)
		e.log.WithField("queue_id", l.id).Info("queue archived")
	}
	return archived, nil
}
