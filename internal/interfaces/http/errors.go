package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/event-budget/internal/domain/apperr"
)

// Response represents a standard JSON response
type Response struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	Code       string             `json:"code,omitempty"`
	Violations []apperr.Violation `json:"violations,omitempty"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindInvalidTransition: http.StatusConflict,
	apperr.KindConflictRetry:     http.StatusConflict,
	apperr.KindItemLocked:        http.StatusLocked,
	apperr.KindBudgetLocked:      http.StatusLocked,
	apperr.KindValidationFailed:  http.StatusUnprocessableEntity,
}

// StatusFor maps an application error to its HTTP status
func StatusFor(err error) int {
	if status, ok := statusByKind[apperr.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes err. Typed errors carry their reason to the client;
// anything else is logged and answered with a generic message.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal server error",
		})
		return
	}

	c.JSON(StatusFor(appErr), Response{
		Success:    false,
		Error:      appErr.Error(),
		Code:       string(appErr.Kind),
		Violations: appErr.Violations,
	})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   message,
	})
}
