package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger emits one structured line per completed request.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get(RequestIDHeader)
		requestIDStr, _ := requestID.(string)

		var event *zerolog.Event
		if c.Writer.Status() >= 500 {
			event = log.Error()
		} else {
			event = log.Info()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("request_id", requestIDStr).
			Str("ip", c.ClientIP()).
			Msg("request completed")
	}
}
