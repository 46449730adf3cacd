package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdrianLinares/petcare-app-sub000/internal/access"
	"github.com/AdrianLinares/petcare-app-sub000/internal/metrics"
)

// RequireCapability lets the request through only when the acting account
// holds every listed capability.
func RequireCapability(rec *metrics.Recorder, caps ...access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := CurrentAccount(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		for _, capability := range caps {
			if !access.HasCapability(account, capability) {
				rec.AccessDenied(capability.String())
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}

		c.Next()
	}
}
