// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/token"
)

const (
	callerKey  = "caller"
	profileKey = "profile"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// The tenant and role come from the profile row, never from the token or the body.
func AuthMiddleware(jwtManager *token.JWTManager, profiles repository.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
			return
		}

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido ou expirado"})
			return
		}

		profile, err := profiles.FindByID(c.Request.Context(), claims.Subject)
		if err != nil {
			if !repository.IsNotFound(err) {
				log.Errorf("加载用户资料失败, subject=%s: %v", claims.Subject, err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Usuário não encontrado"})
			return
		}

		caller, ok := tools.CallerFromProfile(profile)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Perfil sem acesso ao assistente"})
			return
		}

		c.Set(profileKey, profile)
		c.Set(callerKey, caller)
		c.Next()
	}
}

// bearerToken reads "Authorization: Bearer <token>", or the access_token query
// parameter for websocket upgrades, where browsers cannot set headers.
func bearerToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	if h := c.GetHeader("Authorization"); h != "" {
		if !strings.HasPrefix(h, bearerPrefix) {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("access_token")
	}
	return ""
}

// CallerFrom returns the caller stored by AuthMiddleware.
func CallerFrom(c *gin.Context) (tools.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil, false
	}
	caller, ok := v.(tools.Caller)
	return caller, ok
}
