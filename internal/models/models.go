package models

import "github.com/google/uuid"

// All перечисляет модели для AutoMigrate.
func All() []interface{} {
	return []interface{}{&Queue{}, &UserSession{}}
}

// NewID выдаёт UUIDv7: идентификаторы сортируются по времени создания.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
