package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prima-facie-go/internal/middleware"
	"prima-facie-go/internal/service"
)

// ToolExecutionHandler confirms actions held for approval.
type ToolExecutionHandler struct {
	service service.ToolExecutionService
}

// NewToolExecutionHandler 创建一个新的 ToolExecutionHandler。
func NewToolExecutionHandler(service service.ToolExecutionService) *ToolExecutionHandler {
	return &ToolExecutionHandler{service: service}
}

// Confirm 处理 POST /api/ai/tool-executions/:id/confirm。
func (h *ToolExecutionHandler) Confirm(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}
	result, err := h.service.Confirm(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
