package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"virtual_queue/internal/response"
)

var errNoIdentifier = errors.New("user_identifier is required")

// UserQueueItem — активная сессия пользователя в одной из очередей.
type UserQueueItem struct {
	SessionID            string `json:"session_id"`
	QueueID              string `json:"queue_id"`
	State                string `json:"state" example:"waiting"`
	Rank                 int    `json:"rank" example:"2"`
	PriorityTier         string `json:"priority_tier" example:"normal"`
	EnqueuedAt           string `json:"enqueued_at"`
	EstimatedWaitSeconds int64  `json:"estimated_wait_seconds" example:"600"`
}

// GetUserQueuesHandler godoc
// @Summary		Получение списка своих очередей
// @Description	Активные сессии пользователя во всех очередях арендатора
// @Tags			profile
// @Produce		json
// @Param			tenant_id		query		string	true	"ID арендатора"
// @Param			user_identifier	query		string	true	"Идентификатор пользователя"
// @Success		200				{array}		UserQueueItem
// @Failure		400				{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Router			/profile/queues [get]
func (h *Handler) GetUserQueuesHandler(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	userIdentifier := c.Query("user_identifier")
	if userIdentifier == "" {
		response.BadRequest(c, errNoIdentifier)
		return
	}

	ctx := c.Request.Context()
	sessions, err := h.engine.UserSessions(ctx, tenantID, userIdentifier)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]UserQueueItem, 0, len(sessions))
	for _, s := range sessions {
		item := UserQueueItem{
			SessionID:    s.ID,
			QueueID:      s.QueueID,
			State:        string(s.State),
			Rank:         s.Rank,
			PriorityTier: s.PriorityTier,
			EnqueuedAt:   s.EnqueuedAt.Format(time.RFC3339),
		}
		// Оценка ожидания считается движком; сессия могла завершиться между запросами.
		if st, err := h.engine.GetStatus(ctx, s.ID); err == nil {
			item.Rank = st.Rank
			item.State = string(st.State)
			item.EstimatedWaitSeconds = int64(st.EstimatedWait / time.Second)
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, items)
}
