package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"prima-facie-go/internal/service"
	"prima-facie-go/pkg/log"
)

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	var rateErr *service.RateLimitError
	var actionErr *service.ActionError
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrConversationNotFound), errors.Is(err, service.ErrToolExecutionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConversationArchived), errors.Is(err, service.ErrAlreadyExecuted):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &actionErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": msg} with the mapped status.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorw("请求处理失败", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
