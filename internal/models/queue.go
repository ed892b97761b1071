package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultNoShowTimeout   = 10 * time.Minute
	DefaultServiceDuration = 5 * time.Minute
)

// OperatingHours задаёт суточное окно приёма в часовом поясе очереди.
// Пустые Start и End означают круглосуточную работу.
type OperatingHours struct {
	Start    string `gorm:"size:5" json:"start,omitempty"` // "09:00"
	End      string `gorm:"size:5" json:"end,omitempty"`   // "18:00"
	Timezone string `gorm:"size:64" json:"timezone,omitempty"`
}

// Queue — виртуальная очередь арендатора.
type Queue struct {
	ID                    string         `gorm:"primaryKey;size:36" json:"id"`
	TenantID              string         `gorm:"size:64;index;not null" json:"tenant_id"`
	Name                  string         `gorm:"size:128;not null" json:"name"`
	Capacity              int            `gorm:"not null;default:1" json:"capacity"`   // Called + Serving одновременно
	MaxActive             int            `gorm:"not null;default:0" json:"max_active"` // Waiting + Called + Serving, 0 — без лимита
	ReleaseRatePerMinute  float64        `gorm:"not null;default:0" json:"release_rate_per_minute"`
	IsActive              bool           `gorm:"default:false" json:"is_active"`
	OperatingHours        OperatingHours `gorm:"embedded;embeddedPrefix:hours_" json:"operating_hours"`
	PriorityPolicy        []string       `gorm:"serializer:json" json:"priority_policy"` // от старшего к младшему
	DefaultTier           string         `gorm:"size:32" json:"default_tier,omitempty"`
	NoShowTimeoutSeconds  int            `json:"no_show_timeout_seconds,omitempty"`
	DefaultServiceSeconds int            `json:"default_service_seconds,omitempty"`
	ArchivedAt            *time.Time     `json:"archived_at,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// Validate проверяет инварианты конфигурации очереди.
func (q *Queue) Validate() error {
	if q.ID == "" || q.TenantID == "" {
		return errors.New("queue id and tenant id are required")
	}
	if q.Capacity < 1 {
		return fmt.Errorf("capacity must be >= 1, got %d", q.Capacity)
	}
	if q.MaxActive < 0 {
		return fmt.Errorf("max active must be >= 0, got %d", q.MaxActive)
	}
	if q.MaxActive > 0 && q.MaxActive < q.Capacity {
		return fmt.Errorf("max active %d is below capacity %d", q.MaxActive, q.Capacity)
	}
	if q.ReleaseRatePerMinute < 0 {
		return fmt.Errorf("release rate must be >= 0, got %v", q.ReleaseRatePerMinute)
	}
	if len(q.PriorityPolicy) == 0 {
		return errors.New("priority policy must list at least one tier")
	}
	seen := make(map[string]struct{}, len(q.PriorityPolicy))
	for _, tier := range q.PriorityPolicy {
		if tier == "" {
			return errors.New("priority tier name is empty")
		}
		if _, dup := seen[tier]; dup {
			return fmt.Errorf("priority tier %q listed twice", tier)
		}
		seen[tier] = struct{}{}
	}
	if q.DefaultTier != "" {
		if _, ok := seen[q.DefaultTier]; !ok {
			return fmt.Errorf("default tier %q is not in the priority policy", q.DefaultTier)
		}
	}
	if _, _, err := q.OperatingHours.window(); err != nil {
		return err
	}
	if _, err := q.OperatingHours.Location(); err != nil {
		return err
	}
	return nil
}

// NoShowTimeout возвращает таймаут неявки или fallback, если он не задан.
func (q *Queue) NoShowTimeout(fallback time.Duration) time.Duration {
	if q.NoShowTimeoutSeconds > 0 {
		return time.Duration(q.NoShowTimeoutSeconds) * time.Second
	}
	return fallback
}

// ServiceDuration — оценка длительности обслуживания до появления статистики.
func (q *Queue) ServiceDuration(fallback time.Duration) time.Duration {
	if q.DefaultServiceSeconds > 0 {
		return time.Duration(q.DefaultServiceSeconds) * time.Second
	}
	return fallback
}

// IsOpenAt сообщает, принимает ли очередь новых участников в момент t.
// loc — часовой пояс окна, заранее полученный через OperatingHours.Location.
func (q *Queue) IsOpenAt(t time.Time, loc *time.Location) bool {
	if !q.IsActive || q.ArchivedAt != nil {
		return false
	}
	return q.OperatingHours.Contains(t, loc)
}

// Location загружает часовой пояс окна. Без Timezone окно считается в UTC.
func (h OperatingHours) Location() (*time.Location, error) {
	if h.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("operating hours timezone: %w", err)
	}
	return loc, nil
}

// Contains проверяет попадание t в суточное окно в поясе loc (nil — UTC).
// Окно, у которого End раньше Start, переходит через полночь.
func (h OperatingHours) Contains(t time.Time, loc *time.Location) bool {
	start, end, err := h.window()
	if err != nil || (start < 0 && end < 0) {
		return err == nil
	}
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// window возвращает границы окна в минутах от полуночи, -1 если окна нет.
func (h OperatingHours) window() (int, int, error) {
	if h.Start == "" && h.End == "" {
		return -1, -1, nil
	}
	if h.Start == "" || h.End == "" {
		return 0, 0, errors.New("operating hours need both start and end")
	}
	start, err := time.Parse("15:04", h.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("operating hours start: %w", err)
	}
	end, err := time.Parse("15:04", h.End)
	if err != nil {
		return 0, 0, fmt.Errorf("operating hours end: %w", err)
	}
	if start.Equal(end) {
		return 0, 0, fmt.Errorf("operating hours %s-%s are empty, leave both blank for a 24h queue", h.Start, h.End)
	}
	return start.Hour()*60 + start.Minute(), end.Hour()*60 + end.Minute(), nil
}
