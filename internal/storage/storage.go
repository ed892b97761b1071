package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"virtual_queue/internal/config"
	"virtual_queue/internal/models"
	"virtual_queue/internal/queue"
)

var (
	_ queue.QueueRepository   = (*QueueRepo)(nil)
	_ queue.SessionRepository = (*SessionRepo)(nil)
)

// ConnectDatabase открывает подключение к PostgreSQL.
func ConnectDatabase(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("подключение к базе данных: %w", err)
	}
	return db, nil
}

// Migrate создаёт или обновляет таблицы очередей и сессий.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// InitRedis создаёт клиента Redis и проверяет соединение.
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("подключение к redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// QueueRepo хранит конфигурацию очередей в PostgreSQL.
type QueueRepo struct {
	db *gorm.DB
}

func NewQueueRepo(db *gorm.DB) *QueueRepo { return &QueueRepo{db: db} }

func (r *QueueRepo) GetQueue(ctx context.Context, id string) (*models.Queue, error) {
	var q models.Queue
	if err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "queue", id)
	}
	return &q, nil
}

// SaveQueue создаёт очередь или обновляет все её поля.
func (r *QueueRepo) SaveQueue(ctx context.Context, q *models.Queue) error {
	if q.ID == "" {
		q.ID = models.NewID()
	}
	return r.db.WithContext(ctx).Save(q).Error
}

func (r *QueueRepo) ArchiveQueue(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Queue{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_active":   false,
		"archived_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: queue %s", queue.ErrNotFound, id)
	}
	return nil
}

// ListQueues возвращает очереди арендатора; пустой tenantID — все очереди.
func (r *QueueRepo) ListQueues(ctx context.Context, tenantID string) ([]*models.Queue, error) {
	var list []*models.Queue
	tx := r.db.WithContext(ctx).Order("name, id")
	if tenantID != "" {
		tx = tx.Where("tenant_id = ?", tenantID)
	}
	if err := tx.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SessionRepo хранит снимки сессий. Пишется движком после фиксации перехода.
type SessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepo { return &SessionRepo{db: db} }

// SaveSession делает идемпотентный upsert по id.
func (r *SessionRepo) SaveSession(ctx context.Context, s *models.UserSession) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(s).Error
}

func (r *SessionRepo) GetSession(ctx context.Context, id string) (*models.UserSession, error) {
	var s models.UserSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &s, nil
}

func (r *SessionRepo) ListSessions(ctx context.Context, queueID string, states ...models.State) ([]*models.UserSession, error) {
	var list []*models.UserSession
	tx := r.db.WithContext(ctx).Where("queue_id = ?", queueID)
	if len(states) > 0 {
		tx = tx.Where("state IN ?", states)
	}
	if err := tx.Order("enqueued_at, seq").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *SessionRepo) ListActiveSessions(ctx context.Context) ([]*models.UserSession, error) {
	var list []*models.UserSession
	active := []models.State{models.StateWaiting, models.StateCalled, models.StateServing}
	if err := r.db.WithContext(ctx).Where("state IN ?", active).Order("enqueued_at, seq").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", queue.ErrNotFound, kind, id)
	}
	return err
}
