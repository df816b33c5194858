package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const ContextPrincipalKey = "principal"

// Middleware guards a route group with bearer-token verification.
// The original UI relied on the client to gate protected pages; the
// server now refuses unauthenticated access outright.
func Middleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "missing token"})
			return
		}

		claims, err := ParseJWT(token, secret)
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "invalid token"})
			return
		}

		c.Set(ContextPrincipalKey, claims.Subject)
		c.Next()
	}
}
