package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"virtual_queue/internal/auth"
	"virtual_queue/internal/models"
	"virtual_queue/internal/queue"
	"virtual_queue/internal/response"
)

// QueueStore — хранилище конфигурации очередей для служебных эндпоинтов.
type QueueStore interface {
	GetQueue(ctx context.Context, id string) (*models.Queue, error)
	SaveQueue(ctx context.Context, q *models.Queue) error
	ListQueues(ctx context.Context, tenantID string) ([]*models.Queue, error)
}

// Handler связывает HTTP-эндпоинты с движком очередей.
type Handler struct {
	engine *queue.Engine
	queues QueueStore
}

func New(engine *queue.Engine, queues QueueStore) *Handler {
	return &Handler{engine: engine, queues: queues}
}

// Register подключает маршруты. staff защищает служебные эндпоинты,
// ws обслуживает подписку на события очереди.
func (h *Handler) Register(r gin.IRouter, staff gin.HandlerFunc, ws gin.HandlerFunc) {
	api := r.Group("/api")
	{
		api.POST("/queues/:id/join", h.JoinQueueHandler)
		api.GET("/sessions/:id", h.GetSessionStatusHandler)
		api.POST("/sessions/:id/leave", h.LeaveQueueHandler)
		if ws != nil {
			api.GET("/queues/:id/ws", ws)
		}
	}

	r.GET("/profile/queues", h.GetUserQueuesHandler)

	s := r.Group("/api/staff", staff)
	{
		s.GET("/queues", h.ListQueuesHandler)
		s.POST("/queues", h.CreateQueueHandler)
		s.PUT("/queues/:id", h.UpdateQueueHandler)
		s.GET("/queues/:id/status", h.GetQueueStatusHandler)
		s.GET("/queues/:id/sessions", h.GetQueueSessionsHandler)
		s.POST("/queues/:id/release", h.ReleaseUsersHandler)
		s.POST("/queues/:id/deactivate", h.DeactivateQueueHandler)
		s.POST("/sessions/:id/checkin", h.CheckInHandler)
		s.POST("/sessions/:id/complete", h.CompleteHandler)
		s.POST("/sessions/:id/priority", h.ReprioritizeHandler)
	}
}

// SessionStatusResponse — позиция и ожидаемое время ожидания участника.
type SessionStatusResponse struct {
	Session              *models.UserSession `json:"session"`
	State                models.State        `json:"state" example:"waiting"`
	Rank                 int                 `json:"rank" example:"3"`
	EstimatedWaitSeconds int64               `json:"estimated_wait_seconds" example:"900"`
}

func statusResponse(st *queue.Status) SessionStatusResponse {
	return SessionStatusResponse{
		Session:              st.Session,
		State:                st.State,
		Rank:                 st.Rank,
		EstimatedWaitSeconds: int64(st.EstimatedWait / time.Second),
	}
}

// ownQueue проверяет, что очередь принадлежит арендатору сотрудника.
func (h *Handler) ownQueue(c *gin.Context, queueID string) bool {
	q, err := h.queues.GetQueue(c.Request.Context(), queueID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if q.TenantID != auth.TenantID(c) {
		c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Очередь не найдена",
		})
		return false
	}
	return true
}

// ownSession проверяет, что сессия принадлежит арендатору сотрудника.
func (h *Handler) ownSession(c *gin.Context, sessionID string) bool {
	st, err := h.engine.GetStatus(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if st.Session.TenantID != auth.TenantID(c) {
		c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Сессия не найдена",
		})
		return false
	}
	return true
}
