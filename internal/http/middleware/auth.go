// README: Bearer-token auth middleware; populates caller id and role for handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxCallerID   = "caller_id"
	ctxCallerRole = "caller_role"
)

// Auth verifies an HMAC-signed bearer token. Identity provisioning lives
// outside this service; the core only needs the actor's id and role for its
// authorization checks.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing subject"})
			return
		}
		role, _ := claims["role"].(string)

		c.Set(ctxCallerID, sub)
		c.Set(ctxCallerRole, role)
		c.Next()
	}
}

func CallerID(c *gin.Context) string {
	return c.GetString(ctxCallerID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxCallerRole)
}
