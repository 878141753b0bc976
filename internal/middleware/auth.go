package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireBearer guards a route with a static bearer token. When no token is
// configured, any non-empty Authorization header is accepted; the endpoint
// still refuses anonymous callers.
func RequireBearer(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			abortUnauthorized(c, "missing Authorization header")
			return
		}
		if token != "" {
			got := strings.TrimPrefix(header, "Bearer ")
			if got != token {
				abortUnauthorized(c, "invalid token")
				return
			}
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "UNAUTHORIZED", "message": message},
	})
}
