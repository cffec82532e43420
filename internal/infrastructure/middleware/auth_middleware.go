package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware guards the detection ingest endpoint with the device's
// pre-shared key. Rejections happen before any inference cost is paid.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"fall": false, "error": "invalid API key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
