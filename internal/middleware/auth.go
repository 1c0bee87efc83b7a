package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"integen/api/internal/config"
	"integen/api/internal/security"
)

const (
	CtxUserID    = "current_user_id"
	CtxUserEmail = "current_user_email"
)

// OptionalAuth attaches session claims when a bearer token is present.
// A request without a token passes through anonymously; a token that
// fails validation is rejected.
func OptionalAuth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := security.ParseSessionToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUserEmail, claims.Email)

		c.Next()
	}
}
