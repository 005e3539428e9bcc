package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"saas-starter/internal/domain/users"
	"saas-starter/internal/infra/session"
)

// TokenParser validates a session token.
type TokenParser interface {
	Parse(token string) (*users.SessionUser, error)
}

// LoadSession attaches the caller to the context when the request carries a
// valid session cookie or bearer token. It never rejects a request.
func LoadSession(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw, _ = c.Cookie(session.CookieName)
		}
		if raw != "" {
			if user, err := tokens.Parse(raw); err == nil {
				c.Set(users.SessionKey, user)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the caller loaded by LoadSession, or nil.
func CurrentUser(c *gin.Context) *users.SessionUser {
	v, ok := c.Get(users.SessionKey)
	if !ok {
		return nil
	}
	u, _ := v.(*users.SessionUser)
	return u
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "You must be logged in to continue."})
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	token := strings.TrimPrefix(h, "Bearer ")
	if token == h {
		return ""
	}
	return strings.TrimSpace(token)
}
