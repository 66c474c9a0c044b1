package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check HealthCheck
}

type HealthHandler struct {
	checks  []namedCheck
	timeout time.Duration
}

func NewHealthHandler(timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{timeout: timeout}
}

// Add registers a dependency. A nil check is reported as "disabled".
func (h *HealthHandler) Add(name string, check HealthCheck) *HealthHandler {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
	return h
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "healthy"
	services := gin.H{}
	for _, nc := range h.checks {
		switch {
		case nc.check == nil:
			services[nc.name] = "disabled"
		case nc.check(ctx) != nil:
			services[nc.name] = "unhealthy"
			status = "degraded"
		default:
			services[nc.name] = "healthy"
		}
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"services": services,
	})
}
