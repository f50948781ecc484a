package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
)

// SessionAuthMiddleware resolves the session cookie (or a bearer session id)
// into the identity of the signed-in user
type SessionAuthMiddleware struct {
	auth   services.AuthService
	logger utils.Logger
}

func NewSessionAuthMiddleware(authService services.AuthService, logger utils.Logger) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{auth: authService, logger: logger}
}

// AuthMiddleware rejects requests without a live session
func (m *SessionAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.resolve(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message:  msgLoginRequired,
				Category: models.FlashInfo,
				Redirect: pathLogin,
			})
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware sets the identity when a live session is present
func (m *SessionAuthMiddleware) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.resolve(c)
		c.Next()
	}
}

func (m *SessionAuthMiddleware) resolve(c *gin.Context) bool {
	sessionID := sessionFromRequest(c)
	if sessionID == "" {
		return false
	}

	identity, err := m.auth.Authenticate(c.Request.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, services.ErrUnauthorized) {
			utils.GetLogger(c, m.logger).Error("Failed to resolve session", "error", err)
		}
		return false
	}

	auth.SetIdentity(c, identity)
	c.Set("session_id", sessionID)
	return true
}

func sessionFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	// Extract token from "Bearer <session>" format
	tokenParts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(tokenParts) == 2 && strings.ToLower(tokenParts[0]) == "bearer" {
		return tokenParts[1]
	}
	return ""
}
