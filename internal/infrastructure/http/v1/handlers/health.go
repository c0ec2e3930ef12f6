// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck is one dependency probed by the readiness endpoint.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	version string
	storage string
	checks  []HealthCheck
	info    func() any
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version, storage string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{version: version, storage: storage, checks: checks}
}

// WithInfo adds backend statistics to the info endpoint.
func (h *HealthHandler) WithInfo(info func() any) *HealthHandler {
	h.info = info
	return h
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[check.Name] = "unhealthy: " + err.Error()
			continue
		}
		checks[check.Name] = "healthy"
	}

	body := gin.H{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "error"
	}
	c.JSON(status, body)
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "backoffice",
		"version": h.version,
		"storage": h.storage,
	}
	if h.info != nil {
		body["database"] = h.info()
	}
	c.JSON(http.StatusOK, body)
}
