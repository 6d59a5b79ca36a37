package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
)

// Context keys set by the auth middleware.
const (
	RoleKey = "auth_role"

	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// StaffAuth requires a staff or admin bearer token. Tokens are verified
// server-side with a constant-time comparison; requests without a valid
// capability are rejected before any handler work runs.
func StaffAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return requireRole(cfg, false)
}

// AdminAuth requires the admin bearer token.
func AdminAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return requireRole(cfg, true)
}

func requireRole(cfg config.AuthConfig, adminOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c)
			return
		}

		if tokenEqual(token, cfg.AdminToken) {
			c.Set(RoleKey, RoleAdmin)
			c.Next()
			return
		}

		if !adminOnly && tokenEqual(token, cfg.StaffToken) {
			c.Set(RoleKey, RoleStaff)
			c.Next()
			return
		}

		unauthorized(c)
	}
}

// Role returns the authenticated role for the request, if any.
func Role(c *gin.Context) string {
	if role, ok := c.Get(RoleKey); ok {
		return role.(string)
	}
	return ""
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func tokenEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}
