package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"backoffice/pkg/logger"
)

// Logger writes one line per request. Client errors log at warn and server
// errors at error; liveness probes are not logged.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health/live" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			kv = append(kv, "error", errs.String())
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			l.Errorw("http request", kv...)
		case status >= http.StatusBadRequest:
			l.Warnw("http request", kv...)
		default:
			l.Infow("http request", kv...)
		}
	}
}
