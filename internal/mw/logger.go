package mw

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// TraceID returns the OpenTelemetry trace id of the request, or "" when the
// request carries no valid span context.
func TraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// RequestLog writes one access line per request.
func RequestLog(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Printf("type: access, method: %s, path: %s, status: %d, actor: %d, traceID: %s, latency: %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			ActorFrom(c).UserID,
			TraceID(c),
			time.Since(start),
		)
	}
}
