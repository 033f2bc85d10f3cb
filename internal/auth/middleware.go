package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"alert-integrator/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// SessionIDKey is the gin context key holding the verified token's jti.
const SessionIDKey = "session_id"

// RequireAccessToken verifies an access token, keeps its session alive and
// injects identity into request context.
// It does not perform RBAC checks; those belong to internal/rbac.
func RequireAccessToken(m *Manager, sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if sessions != nil {
			if err := sessions.Touch(c.Request.Context(), claims.ID); err != nil {
				if errors.Is(err, ErrSessionExpired) {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
					return
				}
				logger.FromGin(c).Error("session lookup failed", "err", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
				return
			}
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set(SessionIDKey, claims.ID)

		c.Next()
	}
}
