package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"virtual_queue/internal/queue"
)

func TestErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: queue q1", queue.ErrQueueClosed), http.StatusBadRequest, "QUEUE_INACTIVE"},
		{fmt.Errorf("%w: bad tier", queue.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("%w: session s1", queue.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{queue.ErrCapacityExceeded, http.StatusConflict, "CAPACITY_EXCEEDED"},
		{queue.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
		{queue.ErrBusy, http.StatusServiceUnavailable, "BUSY"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Error(c, tt.err)
		assert.Equal(t, tt.status, w.Code, tt.code)
		assert.Contains(t, w.Body.String(), tt.code)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, queue.ErrBusy)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
