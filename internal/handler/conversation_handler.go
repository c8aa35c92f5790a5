package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"prima-facie-go/internal/middleware"
	"prima-facie-go/internal/service"
)

// ConversationHandler 处理与对话相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// List 处理获取用户对话列表的请求。
func (h *ConversationHandler) List(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	conversations, err := h.service.List(c.Request.Context(), caller, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Messages returns one conversation's history.
func (h *ConversationHandler) Messages(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}
	messages, err := h.service.Messages(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": c.Param("id"), "messages": messages})
}

// Archive 归档会话。
func (h *ConversationHandler) Archive(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}
	if err := h.service.Archive(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": c.Param("id"), "status": "archived"})
}
