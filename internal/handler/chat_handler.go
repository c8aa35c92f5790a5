// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"prima-facie-go/internal/middleware"
	"prima-facie-go/internal/service"
	"prima-facie-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler serves chat turns over HTTP and the portal websocket.
type ChatHandler struct {
	chatService   service.ChatService
	portalTimeout time.Duration
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, portalTimeout time.Duration) *ChatHandler {
	if portalTimeout <= 0 {
		portalTimeout = 30 * time.Second
	}
	return &ChatHandler{chatService: chatService, portalTimeout: portalTimeout}
}

// Chat 处理 POST /api/ai/chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Chat: 请求体无效: %v", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "JSON inválido"})
		return
	}
	reply, err := h.chatService.Chat(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// portalFrame is one server frame on the portal socket.
type portalFrame struct {
	Type   string             `json:"type"` // reply | error
	Reply  *service.ChatReply `json:"reply,omitempty"`
	Error  string             `json:"error,omitempty"`
	Status int                `json:"status,omitempty"`
}

// Portal 处理门户 "ask EVA" 的 WebSocket 连接。每一帧是一个 ChatRequest，
// and each turn runs under the portal deadline. A turn that times out still
// keeps the user message already persisted.
func (h *ChatHandler) Portal(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infow("WebSocket 连接已建立", "lawFirmId", caller.TenantID(), "userId", caller.ActorID())

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		var req service.ChatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			if werr := conn.WriteJSON(portalFrame{Type: "error", Error: "JSON inválido", Status: http.StatusBadRequest}); werr != nil {
				return
			}
			continue
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.portalTimeout)
		reply, err := h.chatService.Chat(ctx, caller, req)
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		frame := portalFrame{Type: "reply", Reply: reply}
		if err != nil {
			frame = portalFrame{Type: "error", Error: err.Error(), Status: statusFor(err)}
			if timedOut {
				frame.Error = "A EVA demorou mais do que o esperado. Tente novamente."
				frame.Status = http.StatusGatewayTimeout
			}
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Warnf("写入 WebSocket 消息失败: %v", err)
			return
		}
	}
}
