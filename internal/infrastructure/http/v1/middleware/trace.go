package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	appctx "backoffice/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace attaches request and trace ids to the request context and echoes them
// back as response headers. An active OpenTelemetry span wins over the
// X-Trace-ID header so logs line up with exported spans.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderTraceID)
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		tc := appctx.NewTraceContext(traceID, c.GetHeader(HeaderRequestID))

		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), tc))
		c.Set("trace_id", tc.TraceID)
		c.Set("request_id", tc.RequestID)

		c.Header(HeaderRequestID, tc.RequestID)
		c.Header(HeaderTraceID, tc.TraceID)
		c.Next()
	}
}
