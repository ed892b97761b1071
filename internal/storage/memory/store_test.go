package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual_queue/internal/models"
	"virtual_queue/internal/queue"
)

func TestQueueRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := New()

	q := &models.Queue{ID: "q1", TenantID: "t1", Name: "Касса", Capacity: 2, PriorityPolicy: []string{"vip", "normal"}}
	require.NoError(t, m.SaveQueue(ctx, q))

	got, err := m.GetQueue(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "Касса", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	got.PriorityPolicy[0] = "changed"
	again, err := m.GetQueue(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vip", "normal"}, again.PriorityPolicy, "store must hand out copies")

	require.NoError(t, m.ArchiveQueue(ctx, "q1"))
	archived, err := m.GetQueue(ctx, "q1")
	require.NoError(t, err)
	assert.NotNil(t, archived.ArchivedAt)
	assert.False(t, archived.IsActive)

	_, err = m.GetQueue(ctx, "missing")
	assert.ErrorIs(t, err, queue.ErrNotFound)
	assert.ErrorIs(t, m.ArchiveQueue(ctx, "missing"), queue.ErrNotFound)
}

func TestListQueuesByTenant(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.SaveQueue(ctx, &models.Queue{ID: "b", TenantID: "t1", Name: "B"}))
	require.NoError(t, m.SaveQueue(ctx, &models.Queue{ID: "a", TenantID: "t1", Name: "A"}))
	require.NoError(t, m.SaveQueue(ctx, &models.Queue{ID: "c", TenantID: "t2", Name: "C"}))

	list, err := m.ListQueues(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	all, err := m.ListQueues(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSessionUpsertAndFilters(t *testing.T) {
	ctx := context.Background()
	m := New()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	a := &models.UserSession{ID: "a", QueueID: "q1", UserIdentifier: "u1", State: models.StateWaiting, EnqueuedAt: base, Seq: 1, Rank: 1}
	b := &models.UserSession{ID: "b", QueueID: "q1", UserIdentifier: "u2", State: models.StateWaiting, EnqueuedAt: base, Seq: 2}
	c := &models.UserSession{ID: "c", QueueID: "q2", UserIdentifier: "u3", State: models.StateCompleted, EnqueuedAt: base}
	for _, s := range []*models.UserSession{b, a, c} {
		require.NoError(t, m.SaveSession(ctx, s))
	}

	got, err := m.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, got.Rank, "rank is derived and not stored")

	a.State = models.StateCalled
	require.NoError(t, m.SaveSession(ctx, a))
	require.NoError(t, m.SaveSession(ctx, a))

	waiting, err := m.ListSessions(ctx, "q1", models.StateWaiting)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, "b", waiting[0].ID)

	all, err := m.ListSessions(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID, "ties on enqueue time break on seq")

	active, err := m.ListActiveSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = m.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}
