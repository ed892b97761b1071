package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"virtual_queue/internal/queue"
	"virtual_queue/internal/response"
)

// JoinRequest — тело запроса на вступление в очередь.
type JoinRequest struct {
	TenantID       string            `json:"tenant_id" binding:"required" example:"clinic-42"`
	UserIdentifier string            `json:"user_identifier" binding:"required" example:"+79991234567"`
	PriorityTier   string            `json:"priority_tier,omitempty" example:"normal"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// JoinQueueHandler обрабатывает запрос на вступление в очередь
// @Summary		Вступление в очередь
// @Description	Создаёт сессию в состоянии waiting. Повторный запрос того же пользователя возвращает существующую сессию
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			id		path		string		true	"ID очереди"
// @Param			request	body		JoinRequest	true	"Данные участника"
// @Success		200		{object}	SessionStatusResponse	"Сессия с позицией и ожидаемым временем"
// @Failure		400		{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR, QUEUE_INACTIVE)"
// @Failure		404		{object}	response.ErrorResponse	"Очередь не найдена (NOT_FOUND)"
// @Failure		409		{object}	response.ErrorResponse	"Очередь заполнена (CAPACITY_EXCEEDED)"
// @Failure		503		{object}	response.ErrorResponse	"Очередь занята, повторите (BUSY)"
// @Router			/api/queues/{id}/join [post]
func (h *Handler) JoinQueueHandler(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	s, err := h.engine.Join(ctx, queue.JoinRequest{
		TenantID:       req.TenantID,
		QueueID:        c.Param("id"),
		UserIdentifier: req.UserIdentifier,
		PriorityTier:   req.PriorityTier,
		Metadata:       req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	st, err := h.engine.GetStatus(ctx, s.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse(st))
}

// LeaveQueueHandler обрабатывает запрос на выход из очереди
// @Summary		Выход из очереди
// @Description	Переводит сессию в dropped. Участники позади сдвигаются на одну позицию
// @Tags			queue
// @Produce		json
// @Param			id	path		string	true	"ID сессии"
// @Success		200	{object}	response.SuccessResponse	"Успешный выход из очереди"
// @Failure		404	{object}	response.ErrorResponse	"Сессия не найдена (NOT_FOUND)"
// @Failure		409	{object}	response.ErrorResponse	"Сессия уже завершена (INVALID_STATE)"
// @Failure		503	{object}	response.ErrorResponse	"Очередь занята, повторите (BUSY)"
// @Router			/api/sessions/{id}/leave [post]
func (h *Handler) LeaveQueueHandler(c *gin.Context) {
	if err := h.engine.Leave(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Выход из очереди выполнен"})
}

// GetSessionStatusHandler возвращает позицию участника
// @Summary		Статус сессии
// @Description	Текущее состояние, позиция и ожидаемое время ожидания
// @Tags			queue
// @Produce		json
// @Param			id	path		string	true	"ID сессии"
// @Success		200	{object}	SessionStatusResponse
// @Failure		404	{object}	response.ErrorResponse	"Сессия не найдена (NOT_FOUND)"
// @Router			/api/sessions/{id} [get]
func (h *Handler) GetSessionStatusHandler(c *gin.Context) {
	st, err := h.engine.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse(st))
}
