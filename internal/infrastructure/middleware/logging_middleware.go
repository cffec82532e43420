package middleware

import (
	"time"

	"fallwatch/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger tags every request with a correlation id and logs the
// completed exchange. The id rides on the request context, so downstream
// log lines from the same request correlate.
func RequestLogger(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := logger.WithRequestID(c.Request.Context(), uuid.NewString())
		if id := c.GetHeader("X-Device-ID"); id != "" {
			ctx = logger.WithDeviceID(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		cl.LogRequest(ctx, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
