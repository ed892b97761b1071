package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"virtual_queue/internal/auth"
	"virtual_queue/internal/models"
	"virtual_queue/internal/queue"
	"virtual_queue/internal/response"
)

// QueueRequest — настройки очереди при создании и изменении.
type QueueRequest struct {
	Name                  string                `json:"name" binding:"required" example:"Регистратура"`
	Capacity              int                   `json:"capacity" binding:"required,min=1" example:"3"`
	MaxActive             int                   `json:"max_active" binding:"min=0" example:"200"`
	ReleaseRatePerMinute  float64               `json:"release_rate_per_minute" binding:"min=0" example:"2"`
	IsActive              *bool                 `json:"is_active,omitempty"`
	OperatingHours        models.OperatingHours `json:"operating_hours"`
	PriorityPolicy        []string              `json:"priority_policy" binding:"required,min=1"`
	DefaultTier           string                `json:"default_tier,omitempty" example:"normal"`
	NoShowTimeoutSeconds  int                   `json:"no_show_timeout_seconds,omitempty" example:"600"`
	DefaultServiceSeconds int                   `json:"default_service_seconds,omitempty" example:"300"`
}

func (r QueueRequest) apply(q *models.Queue) {
	q.Name = r.Name
	q.Capacity = r.Capacity
	q.MaxActive = r.MaxActive
	q.ReleaseRatePerMinute = r.ReleaseRatePerMinute
	if r.IsActive != nil {
		q.IsActive = *r.IsActive
	}
	q.OperatingHours = r.OperatingHours
	q.PriorityPolicy = r.PriorityPolicy
	q.DefaultTier = r.DefaultTier
	q.NoShowTimeoutSeconds = r.NoShowTimeoutSeconds
	q.DefaultServiceSeconds = r.DefaultServiceSeconds
}

type ReleaseRequest struct {
	Count int `json:"count" binding:"required,min=1" example:"2"`
}

type ReleaseResponse struct {
	Released []*models.UserSession `json:"released"`
}

type PriorityRequest struct {
	Tier string `json:"tier" binding:"required" example:"vip"`
}

// QueueStatusResponse — состояние очереди для сотрудников.
type QueueStatusResponse struct {
	Queue                 *models.Queue         `json:"queue"`
	Waiting               []*models.UserSession `json:"waiting"`
	Called                []*models.UserSession `json:"called"`
	Serving               []*models.UserSession `json:"serving"`
	SlotsAvailable        int                   `json:"slots_available" example:"1"`
	AverageServiceSeconds int64                 `json:"average_service_seconds" example:"240"`
}

// ListQueuesHandler godoc
// @Summary		Очереди арендатора
// @Tags			staff
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		models.Queue
// @Failure		401	{object}	response.ErrorResponse
// @Router			/api/staff/queues [get]
func (h *Handler) ListQueuesHandler(c *gin.Context) {
	list, err := h.queues.ListQueues(c.Request.Context(), auth.TenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateQueueHandler godoc
// @Summary		Создание очереди
// @Tags			staff
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			request	body		QueueRequest	true	"Настройки очереди"
// @Success		201		{object}	models.Queue
// @Failure		400		{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Router			/api/staff/queues [post]
func (h *Handler) CreateQueueHandler(c *gin.Context) {
	var req QueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	q := &models.Queue{ID: models.NewID(), TenantID: auth.TenantID(c), IsActive: true}
	req.apply(q)
	if err := q.Validate(); err != nil {
		response.BadRequest(c, err)
		return
	}
	if err := h.queues.SaveQueue(c.Request.Context(), q); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// UpdateQueueHandler godoc
// @Summary		Изменение настроек очереди
// @Description	Новые настройки применяются к загруженной очереди сразу, участники пересортировываются при смене политики приоритетов
// @Tags			staff
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			id		path		string			true	"ID очереди"
// @Param			request	body		QueueRequest	true	"Настройки очереди"
// @Success		200		{object}	models.Queue
// @Failure		400		{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		404		{object}	response.ErrorResponse	"Очередь не найдена (NOT_FOUND)"
// @Router			/api/staff/queues/{id} [put]
func (h *Handler) UpdateQueueHandler(c *gin.Context) {
	var req QueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	id := c.Param("id")
	if !h.ownQueue(c, id) {
		return
	}
	ctx := c.Request.Context()
	q, err := h.queues.GetQueue(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if q.ArchivedAt != nil {
		response.Error(c, fmt.Errorf("%w: queue %s is archived", queue.ErrNotFound, id))
		return
	}
	req.apply(q)
	if err := q.Validate(); err != nil {
		response.BadRequest(c, err)
		return
	}
	if err := h.queues.SaveQueue(ctx, q); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.engine.ReloadQueue(ctx, id); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// GetQueueStatusHandler godoc
// @Summary		Состояние очереди
// @Description	Ожидающие по порядку обслуживания, вызванные и обслуживаемые участники
// @Tags			staff
// @Produce		json
// @Security		BearerAuth
// @Param			id	path		string	true	"ID очереди"
// @Success		200	{object}	QueueStatusResponse
// @Failure		404	{object}	response.ErrorResponse	"Очередь не найдена (NOT_FOUND)"
// @Router			/api/staff/queues/{id}/status [get]
func (h *Handler) GetQueueStatusHandler(c *gin.Context) {
	id := c.Param("id")
	if !h.ownQueue(c, id) {
		return
	}
	snap, err := h.engine.QueueStatus(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, QueueStatusResponse{
		Queue:                 snap.Queue,
		Waiting:               snap.Waiting,
		Called:                snap.Called,
		Serving:               snap.Serving,
		SlotsAvailable:        snap.SlotsAvailable,
		AverageServiceSeconds: int64(snap.AverageService / time.Second),
	})
}

// GetQueueSessionsHandler godoc
// @Summary		История участников очереди
// @Description	Сохранённые сессии очереди в порядке прихода, включая завершённые. Фильтр state можно повторять
// @Tags			staff
// @Produce		json
// @Security		BearerAuth
// @Param			id		path		string		true	"ID очереди"
// @Param			state	query		[]string	false	"Состояния: waiting, called, serving, completed, dropped, no_show"	collectionFormat(multi)
// @Success		200		{array}		models.UserSession
// @Failure		400		{object}	response.ErrorResponse	"Неизвестное состояние (VALIDATION_ERROR)"
// @Failure		404		{object}	response.ErrorResponse	"Очередь не найдена (NOT_FOUND)"
// @Router			/api/staff/queues/{id}/sessions [get]
func (h *Handler) GetQueueSessionsHandler(c *gin.Context) {
	id := c.Param("id")
	if !h.ownQueue(c, id) {
		return
	}
	var states []models.State
	for _, st := range c.QueryArray("state") {
		states = append(states, models.State(st))
	}
	list, err := h.engine.History(c.Request.Context(), id, states...)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ReleaseUsersHandler godoc
// @Summary		Ручной вызов участников
// @Description	Вызывает до count участников без учёта темпа выпуска, но не больше свободных мест
// @Tags			staff
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			id		path		string			true	"ID очереди"
// @Param			request	body		ReleaseRequest	true	"Сколько вызвать"
// @Success		200		{object}	ReleaseResponse
// @Failure		404		{object}	response.ErrorResponse	"Очередь не найдена (NOT_FOUND)"
// @Failure		503		{object}	response.ErrorResponse	"Очередь занята, повторите (BUSY)"
// @Router			/api/staff/queues/{id}/release [post]
func (h *Handler) ReleaseUsersHandler(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	id := c.Param("id")
	if !h.ownQueue(c, id) {
		return
	}
	released, err := h.engine.ReleaseUsers(c.Request.Context(), id, req.Count)
	if err != nil {
		response.Error(c, err)
		return
	}
	if released == nil {
		released = []*models.UserSession{}
	}
	c.JSON(http.StatusOK, ReleaseResponse{Released: released})
}

// DeactivateQueueHandler godoc
// @Summary		Закрытие очереди
// @Description	Очередь перестаёт принимать участников; текущие обслуживаются до конца, после чего очередь архивируется
// @Tags			staff
// @Produce		json
// @Security		BearerAuth
// @Param			id	path		string	true	"ID очереди"
// @Success		200	{object}	response.SuccessResponse
// @Failure		404	{object}	response.ErrorResponse	"Очередь не найдена (NOT_FOUND)"
// @Router			/api/staff/queues/{id}/deactivate [post]
func (h *Handler) DeactivateQueueHandler(c *gin.Context) {
	id := c.Param("id")
	if !h.ownQueue(c, id) {
		return
	}
	if err := h.engine.DeactivateQueue(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Очередь закрыта для новых участников"})
}

// CheckInHandler godoc
// @Summary		Участник пришёл
// @Tags			staff
// @Produce		json
// @Security		BearerAuth
// @Param			id	path		string	true	"ID сессии"
// @Success		200	{object}	models.UserSession
// @Failure		404	{object}	response.ErrorResponse	"Сессия не найдена (NOT_FOUND)"
// @Failure		409	{object}	response.ErrorResponse	"Сессия не в состоянии called (INVALID_STATE)"
// @Router			/api/staff/sessions/{id}/checkin [post]
func (h *Handler) CheckInHandler(c *gin.Context) {
	h.sessionTransition(c, h.engine.CheckIn)
}

// CompleteHandler godoc
// @Summary		Обслуживание завершено
// @Tags			staff
// @Produce		json
// @Security		BearerAuth
// @Param			id	path		string	true	"ID сессии"
// @Success		200	{object}	models.UserSession
// @Failure		404	{object}	response.ErrorResponse	"Сессия не найдена (NOT_FOUND)"
// @Failure		409	{object}	response.ErrorResponse	"Сессия не в состоянии serving (INVALID_STATE)"
// @Router			/api/staff/sessions/{id}/complete [post]
func (h *Handler) CompleteHandler(c *gin.Context) {
	h.sessionTransition(c, h.engine.Complete)
}

// ReprioritizeHandler godoc
// @Summary		Смена приоритета
// @Description	Переносит ожидающего участника в другой уровень с сохранением времени вступления
// @Tags			staff
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			id		path		string			true	"ID сессии"
// @Param			request	body		PriorityRequest	true	"Новый уровень"
// @Success		200		{object}	models.UserSession
// @Failure		400		{object}	response.ErrorResponse	"Неизвестный уровень (VALIDATION_ERROR)"
// @Failure		409		{object}	response.ErrorResponse	"Сессия не ожидает (INVALID_STATE)"
// @Router			/api/staff/sessions/{id}/priority [post]
func (h *Handler) ReprioritizeHandler(c *gin.Context) {
	var req PriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	id := c.Param("id")
	if !h.ownSession(c, id) {
		return
	}
	s, err := h.engine.Reprioritize(c.Request.Context(), id, req.Tier)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type transitionFunc func(ctx context.Context, sessionID string) (*models.UserSession, error)

func (h *Handler) sessionTransition(c *gin.Context, fn transitionFunc) {
	id := c.Param("id")
	if !h.ownSession(c, id) {
		return
	}
	s, err := fn(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
