// server/internal/api/middleware/auth.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"mediradar-api-server/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userKey = "auth_user"

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// ok is false when the header is absent or uses another scheme.
func BearerToken(header string) (token string, ok bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), true
}

// Authenticate resolves the bearer token to a Supabase user and stores it in the context.
// ready is false when neither the Supabase Auth API nor a JWT secret is configured.
func Authenticate(resolver auth.Resolver, ready bool, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ready || resolver == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "config_error"})
			return
		}

		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if errors.Is(err, auth.ErrNotConfigured) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "config_error"})
			return
		}
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				log.Warn("token resolution failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// Authorize requires every listed role on the authenticated user.
func Authorize(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			// Authenticate must run first
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
			return
		}
		if !auth.Roles(user).HasAll(requiredRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user set by Authenticate, or nil.
func CurrentUser(c *gin.Context) *auth.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*auth.User)
	return user
}

// RequireAPIKey guards the pharmacy reply route with the shared x-api-key header.
func RequireAPIKey(key *auth.APIKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == nil || !key.Match(c.GetHeader("x-api-key")) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
