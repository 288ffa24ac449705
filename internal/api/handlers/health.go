package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iwhizerd/Movie-recomendator/internal/health"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
)

type HealthHandler struct {
	checker *health.HealthChecker
	service string
}

func NewHealthHandler(checker *health.HealthChecker, service string) *HealthHandler {
	return &HealthHandler{checker: checker, service: service}
}

// HandleHealth reports 503 only when a service the core depends on is down.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	overall := h.checker.CheckAll(c.Request.Context())

	services := make(map[string]string, len(overall.Services))
	for _, s := range overall.Services {
		services[s.Name] = s.Status
	}

	code := http.StatusOK
	if overall.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, models.HealthResponse{
		Status:    overall.Status,
		Service:   h.service,
		Timestamp: time.Now().Format(time.RFC3339),
		Services:  services,
	})
}
