package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"virtual_queue/internal/queue"
)

// SuccessResponse представляет успешный ответ API
type SuccessResponse struct {
	Message string `json:"message" example:"Операция успешно выполнена"`
}

// ErrorResponse представляет ответ с ошибкой API
type ErrorResponse struct {
	// Код ошибки для программной обработки
	// example: VALIDATION_ERROR
	Code string `json:"code"`

	// Человекочитаемое сообщение об ошибке
	// example: Ошибка валидации данных
	Message string `json:"message"`

	// Дополнительные детали об ошибке (опционально)
	// example: user identifier is required
	Details string `json:"details,omitempty"`
}

// Error переводит ошибку движка очереди в HTTP-ответ.
func Error(c *gin.Context, err error) {
	status, body := classify(err)
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest — ошибка разбора запроса до обращения к движку.
func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    "VALIDATION_ERROR",
		Message: "Ошибка валидации данных",
		Details: err.Error(),
	})
}

func classify(err error) (int, ErrorResponse) {
	details := err.Error()
	switch {
	case errors.Is(err, queue.ErrQueueClosed):
		return http.StatusBadRequest, ErrorResponse{Code: "QUEUE_INACTIVE", Message: "Очередь сейчас не принимает участников", Details: details}
	case errors.Is(err, queue.ErrValidation):
		return http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_ERROR", Message: "Ошибка валидации данных", Details: details}
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: "Не найдено", Details: details}
	case errors.Is(err, queue.ErrCapacityExceeded):
		return http.StatusConflict, ErrorResponse{Code: "CAPACITY_EXCEEDED", Message: "Очередь заполнена, попробуйте позже", Details: details}
	case errors.Is(err, queue.ErrInvalidState):
		return http.StatusConflict, ErrorResponse{Code: "INVALID_STATE", Message: "Недопустимый переход состояния", Details: details}
	case errors.Is(err, queue.ErrBusy):
		return http.StatusServiceUnavailable, ErrorResponse{Code: "BUSY", Message: "Очередь занята, повторите запрос", Details: details}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: "Внутренняя ошибка сервера"}
}
