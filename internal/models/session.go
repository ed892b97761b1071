package models

import (
	"maps"
	"time"
)

// State — состояние сессии участника.
type State string

const (
	StateWaiting   State = "waiting"
	StateCalled    State = "called"
	StateServing   State = "serving"
	StateCompleted State = "completed"
	StateDropped   State = "dropped"
	StateNoShow    State = "no_show"
)

// IsTerminal: из терминального состояния переходов нет.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateDropped || s == StateNoShow
}

// IsActive: сессия занимает место в очереди.
func (s State) IsActive() bool {
	return s == StateWaiting || s == StateCalled || s == StateServing
}

// UserSession — участие одного пользователя в одной очереди.
type UserSession struct {
	ID             string            `gorm:"primaryKey;size:36" json:"id"`
	TenantID       string            `gorm:"size:64;index;not null" json:"tenant_id"`
	QueueID        string            `gorm:"size:36;not null;index:idx_session_queue_state,priority:1;index:idx_session_queue_user,priority:1" json:"queue_id"`
	UserIdentifier string            `gorm:"size:256;not null;index:idx_session_queue_user,priority:2" json:"user_identifier"`
	PriorityTier   string            `gorm:"size:32;not null" json:"priority_tier"`
	State          State             `gorm:"size:16;not null;index:idx_session_queue_state,priority:2" json:"state"`
	Rank           int               `gorm:"-" json:"rank"` // вычисляется, в базе не хранится
	Seq            uint64            `gorm:"not null" json:"-"`
	EnqueuedAt     time.Time         `gorm:"not null" json:"enqueued_at"`
	CalledAt       *time.Time        `json:"called_at,omitempty"`
	ServedAt       *time.Time        `json:"served_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	ExitedAt       *time.Time        `json:"exited_at,omitempty"` // выход из очереди: Dropped или NoShow
	Metadata       map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"-"`
	UpdatedAt      time.Time         `json:"-"`
}

// Clone возвращает независимую копию, чтобы снимки не делили память с движком.
func (s *UserSession) Clone() *UserSession {
	cp := *s
	cp.CalledAt = cloneTime(s.CalledAt)
	cp.ServedAt = cloneTime(s.ServedAt)
	cp.CompletedAt = cloneTime(s.CompletedAt)
	cp.ExitedAt = cloneTime(s.ExitedAt)
	if s.Metadata != nil {
		cp.Metadata = maps.Clone(s.Metadata)
	}
	return &cp
}

// TerminatedAt возвращает момент перехода в терминальное состояние.
func (s *UserSession) TerminatedAt() *time.Time {
	if s.CompletedAt != nil {
		return s.CompletedAt
	}
	return s.ExitedAt
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
