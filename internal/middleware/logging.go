// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"prima-facie-go/pkg/log"
)

// RequestLogger 是一个 Gin 中间件，用于记录请求日志。Bodies are never logged:
// chat content is privileged client data.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if caller, ok := CallerFrom(c); ok {
			fields = append(fields, "lawFirmId", caller.TenantID(), "userId", caller.ActorID())
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}
