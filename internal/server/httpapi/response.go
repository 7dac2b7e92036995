package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/gin-gonic/gin"
)

// envelope is the body of every JSON response.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c *gin.Context, status int, message string, data any) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, envelope{Status: status, Message: message, Data: data})
}

// statusFor maps service errors onto HTTP statuses and client-safe messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, "Email in use"
	case errors.Is(err, common.ErrOAuthExchangeFailed):
		return http.StatusUnauthorized, "OAuth authorization failed"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, envelope{Status: status, Message: message, Data: gin.H{}})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{
		Status:  http.StatusBadRequest,
		Message: "Invalid request parameters",
		Data:    gin.H{"validation_error": err.Error()},
	})
}
