package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/forecast-ai-go/internal/services"
)

var startTime = time.Now()

// HealthHandler reports dependency and host health.
type HealthHandler struct {
	db      HealthChecker
	redis   HealthChecker
	host    HostStatter
	version string
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string              `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Services  map[string]string   `json:"services"`
	Host      *services.HostStats `json:"host,omitempty"`
	Version   string              `json:"version"`
	Uptime    string              `json:"uptime"`
}

// NewHealthHandler creates a health handler. Any dependency may be nil.
func NewHealthHandler(db, redis HealthChecker, host HostStatter, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, host: host, version: version}
}

// HealthCheck reports dependency health. Any unhealthy dependency yields 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	deps := map[string]string{
		"database": checkHealth(c, h.db),
		"redis":    checkHealth(c, h.redis),
	}

	status := "healthy"
	for _, s := range deps {
		if s != "healthy" {
			status = "unhealthy"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  deps,
		Version:   h.version,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
	if h.host != nil {
		stats := h.host.Stats(ctx)
		response.Host = &stats
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}

func checkHealth(c *gin.Context, dep HealthChecker) string {
	if dep == nil {
		return "unhealthy: not configured"
	}
	if err := dep.HealthCheck(c.Request.Context()); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}
