package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestMetrics returns a gin middleware that appends one NDJSON record
// per handled request to the metrics logger, tagged with a correlation id.
func RequestMetrics(metrics zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		metrics.Log().
			Str("type", "request").
			Str("method", c.Request.Method).
			Str("endpoint", endpoint).
			Int("status", c.Writer.Status()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("request_id", requestID).
			Send()
	}
}
