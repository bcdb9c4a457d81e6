package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const principalContextKey = "homechat.principal"

// principal is the identity resolved for the request. The gateway trusts
// the X-User-ID header placed by the edge; session management itself lives
// outside this service.
type principal struct {
	ID string
}

// IdentityMiddleware lifts the caller identity into the request context.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader("X-User-ID")); id != "" {
			c.Set(principalContextKey, principal{ID: id})
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return principal{}, false
	}
	p, ok := v.(principal)
	return p, ok
}

// requireUser aborts with 401 when the request carries no identity.
func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok || p.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return principal{}, false
	}
	return p, true
}
