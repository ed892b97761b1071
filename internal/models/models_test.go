package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQueue() *Queue {
	return &Queue{
		ID:             NewID(),
		TenantID:       "t1",
		Name:           "Приёмная",
		Capacity:       2,
		IsActive:       true,
		PriorityPolicy: []string{"vip", "normal"},
	}
}

func TestQueueValidate(t *testing.T) {
	require.NoError(t, validQueue().Validate())

	cases := map[string]func(q *Queue){
		"zero capacity":        func(q *Queue) { q.Capacity = 0 },
		"negative rate":        func(q *Queue) { q.ReleaseRatePerMinute = -1 },
		"empty policy":         func(q *Queue) { q.PriorityPolicy = nil },
		"duplicate tier":       func(q *Queue) { q.PriorityPolicy = []string{"vip", "vip"} },
		"unknown default":      func(q *Queue) { q.DefaultTier = "gold" },
		"max below capacity":   func(q *Queue) { q.MaxActive = 1 },
		"half operating hours": func(q *Queue) { q.OperatingHours.Start = "09:00" },
		"empty operating window": func(q *Queue) {
			q.OperatingHours = OperatingHours{Start: "09:00", End: "09:00"}
		},
		"bad timezone": func(q *Queue) {
			q.OperatingHours = OperatingHours{Start: "09:00", End: "18:00", Timezone: "Mars/Olympus"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			q := validQueue()
			mutate(q)
			assert.Error(t, q.Validate())
		})
	}
}

func TestOperatingHoursContains(t *testing.T) {
	day := OperatingHours{Start: "09:00", End: "18:00"}
	assert.True(t, day.Contains(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), nil))
	assert.True(t, day.Contains(time.Date(2025, 1, 6, 17, 59, 0, 0, time.UTC), nil))
	assert.False(t, day.Contains(time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC), nil))

	night := OperatingHours{Start: "22:00", End: "02:00"}
	assert.True(t, night.Contains(time.Date(2025, 1, 6, 23, 30, 0, 0, time.UTC), nil))
	assert.True(t, night.Contains(time.Date(2025, 1, 6, 1, 0, 0, 0, time.UTC), nil))
	assert.False(t, night.Contains(time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC), nil))

	assert.True(t, OperatingHours{}.Contains(time.Now(), nil))

	empty := OperatingHours{Start: "09:00", End: "09:00"}
	assert.False(t, empty.Contains(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), nil))
	assert.False(t, empty.Contains(time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC), nil))
}

func TestOperatingHoursInLocation(t *testing.T) {
	h := OperatingHours{Start: "09:00", End: "18:00", Timezone: "Europe/Moscow"}
	loc, err := h.Location()
	require.NoError(t, err)

	// 07:00 UTC — 10:00 в Москве.
	at := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)
	assert.True(t, h.Contains(at, loc))
	assert.False(t, h.Contains(at, nil))

	loc, err = OperatingHours{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = OperatingHours{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

func TestQueueIsOpenAt(t *testing.T) {
	q := validQueue()
	now := time.Now()
	assert.True(t, q.IsOpenAt(now, time.UTC))
	q.IsActive = false
	assert.False(t, q.IsOpenAt(now, time.UTC))
}

func TestSessionCloneIsDeep(t *testing.T) {
	now := time.Now()
	s := &UserSession{ID: "s1", CalledAt: &now, Metadata: map[string]string{"k": "v"}}
	cp := s.Clone()
	cp.Metadata["k"] = "changed"
	*cp.CalledAt = now.Add(time.Hour)
	assert.Equal(t, "v", s.Metadata["k"])
	assert.Equal(t, now, *s.CalledAt)
}

func TestStatePredicates(t *testing.T) {
	for _, s := range []State{StateCompleted, StateDropped, StateNoShow} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsActive(), s)
	}
	for _, s := range []State{StateWaiting, StateCalled, StateServing} {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, s.IsActive(), s)
	}
}
