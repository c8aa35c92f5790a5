package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prima-facie-go/internal/middleware"
)

// Routes are the handlers mounted by NewRouter. Metrics is optional.
type Routes struct {
	Auth           gin.HandlerFunc
	Chat           *ChatHandler
	Conversations  *ConversationHandler
	ToolExecutions *ToolExecutionHandler
	Metrics        http.Handler
}

// NewRouter 创建路由引擎并注册 /api/ai 路由。
func NewRouter(mode string, h Routes) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	ai := r.Group("/api/ai")
	ai.Use(h.Auth)
	{
		ai.POST("/chat", h.Chat.Chat)
		ai.GET("/portal/ws", h.Chat.Portal)

		conversations := ai.Group("/conversations")
		{
			conversations.GET("", h.Conversations.List)
			conversations.GET("/:id/messages", h.Conversations.Messages)
			conversations.POST("/:id/archive", h.Conversations.Archive)
		}

		// 仅限事务所员工
		ai.POST("/tool-executions/:id/confirm", middleware.StaffOnly(), h.ToolExecutions.Confirm)
	}
	return r
}
