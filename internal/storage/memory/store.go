// Package memory is an in-process implementation of the queue and session
// repositories. It backs tests and the "memory" storage driver.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"virtual_queue/internal/models"
	"virtual_queue/internal/queue"
)

var (
	_ queue.QueueRepository   = (*Store)(nil)
	_ queue.SessionRepository = (*Store)(nil)
)

// Store keeps queues and sessions in maps. Safe for concurrent access.
// Values are copied in and out so callers never share memory with it.
type Store struct {
	mu       sync.RWMutex
	queues   map[string]*models.Queue
	sessions map[string]*models.UserSession
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		queues:   make(map[string]*models.Queue),
		sessions: make(map[string]*models.UserSession),
	}
}

// GetQueue returns a copy of the queue.
func (m *Store) GetQueue(_ context.Context, id string) (*models.Queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queues[id]
	if !ok || q.DeletedAt.Valid {
		return nil, fmt.Errorf("%w: queue %s", queue.ErrNotFound, id)
	}
	return copyQueue(q), nil
}

// SaveQueue creates or replaces a queue.
func (m *Store) SaveQueue(_ context.Context, q *models.Queue) error {
	if q.ID == "" {
		return fmt.Errorf("%w: queue id is required", queue.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cp := copyQueue(q)
	if prev, ok := m.queues[q.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.queues[q.ID] = cp
	return nil
}

// ArchiveQueue stamps the queue as archived.
func (m *Store) ArchiveQueue(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[id]
	if !ok {
		return fmt.Errorf("%w: queue %s", queue.ErrNotFound, id)
	}
	now := time.Now().UTC()
	q.IsActive = false
	q.ArchivedAt = &now
	q.UpdatedAt = now
	return nil
}

// ListQueues returns every stored queue of a tenant ordered by name. An
// empty tenant lists all queues.
func (m *Store) ListQueues(_ context.Context, tenantID string) ([]*models.Queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Queue, 0, len(m.queues))
	for _, q := range m.queues {
		if tenantID != "" && q.TenantID != tenantID {
			continue
		}
		out = append(out, copyQueue(q))
	}
	slices.SortFunc(out, func(a, b *models.Queue) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// SaveSession upserts a session snapshot.
func (m *Store) SaveSession(_ context.Context, s *models.UserSession) error {
	if s.ID == "" {
		return fmt.Errorf("%w: session id is required", queue.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cp := s.Clone()
	cp.Rank = 0
	if prev, ok := m.sessions[s.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.sessions[s.ID] = cp
	return nil
}

// GetSession returns a copy of the session.
func (m *Store) GetSession(_ context.Context, id string) (*models.UserSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", queue.ErrNotFound, id)
	}
	return s.Clone(), nil
}

// ListSessions returns the sessions of a queue in arrival order, filtered
// by state when states are given.
func (m *Store) ListSessions(_ context.Context, queueID string, states ...models.State) ([]*models.UserSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.UserSession
	for _, s := range m.sessions {
		if s.QueueID != queueID {
			continue
		}
		if len(states) > 0 && !slices.Contains(states, s.State) {
			continue
		}
		out = append(out, s.Clone())
	}
	sortByArrival(out)
	return out, nil
}

// ListActiveSessions returns every non-terminal session.
func (m *Store) ListActiveSessions(_ context.Context) ([]*models.UserSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.UserSession
	for _, s := range m.sessions {
		if s.State.IsActive() {
			out = append(out, s.Clone())
		}
	}
	sortByArrival(out)
	return out, nil
}

func sortByArrival(list []*models.UserSession) {
	slices.SortFunc(list, func(a, b *models.UserSession) int {
		if c := a.EnqueuedAt.Compare(b.EnqueuedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

func copyQueue(q *models.Queue) *models.Queue {
	cp := *q
	cp.PriorityPolicy = slices.Clone(q.PriorityPolicy)
	if q.ArchivedAt != nil {
		at := *q.ArchivedAt
		cp.ArchivedAt = &at
	}
	return &cp
}
