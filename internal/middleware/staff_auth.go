package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prima-facie-go/internal/ai/tools"
)

// StaffOnly 检查调用者是否为事务所员工。
// 此中间件必须在 AuthMiddleware 之后使用。
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
			return
		}
		if _, staff := caller.(tools.StaffCaller); !staff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Ação disponível apenas para a equipe do escritório"})
			return
		}
		c.Next()
	}
}
