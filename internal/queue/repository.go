package queue

import (
	"context"

	"virtual_queue/internal/models"
)

// QueueRepository loads and stores queue configuration. Lookups of unknown
// or archived queues return an error wrapping ErrNotFound.
type QueueRepository interface {
	GetQueue(ctx context.Context, id string) (*models.Queue, error)
	SaveQueue(ctx context.Context, q *models.Queue) error
	ArchiveQueue(ctx context.Context, id string) error
}

// SessionRepository stores session snapshots written behind the engine.
// SaveSession must be an idempotent upsert.
type SessionRepository interface {
	SaveSession(ctx context.Context, s *models.UserSession) error
	GetSession(ctx context.Context, id string) (*models.UserSession, error)
	ListSessions(ctx context.Context, queueID string, states ...models.State) ([]*models.UserSession, error)
	ListActiveSessions(ctx context.Context) ([]*models.UserSession, error)
}
