package health

import (
	"context"
	"errors"
	"time"

	"github.com/iwhizerd/Movie-recomendator/internal/database"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

// Pinger is anything that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	dbManager  *database.Manager
	feedback   Pinger
	similarity Pinger
	healthRepo models.SystemHealthRepository
	logger     *logrus.Logger
	timeout    time.Duration
}

// NewHealthChecker wires the checks. similarity may be nil for the local
// provider; healthRepo may be nil when analytics are disabled.
func NewHealthChecker(dbManager *database.Manager, feedback, similarity Pinger, healthRepo models.SystemHealthRepository, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		dbManager:  dbManager,
		feedback:   feedback,
		similarity: similarity,
		healthRepo: healthRepo,
		logger:     logger,
		timeout:    5 * time.Second,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	Critical     bool   `json:"critical"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

func (h *HealthChecker) check(ctx context.Context, name string, critical bool, ping func(context.Context) error) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	switch {
	case errors.Is(err, database.ErrDisabled):
		status = StatusDisabled
	case err != nil:
		status = StatusUnhealthy
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", name).Error("Health check failed")
	}

	if h.healthRepo != nil {
		if err := h.healthRepo.UpdateServiceHealth(name, status, responseTime, errorMsg); err != nil {
			h.logger.WithError(err).WithField("service", name).Warn("Failed to record health status")
		}
	}

	return ServiceHealth{
		Name:         name,
		Status:       status,
		Critical:     critical,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckFeedbackStore checks that feedback can be persisted.
func (h *HealthChecker) CheckFeedbackStore(ctx context.Context) ServiceHealth {
	return h.check(ctx, "feedback_store", true, h.feedback.Ping)
}

// CheckSimilarity checks the remote similarity backend.
func (h *HealthChecker) CheckSimilarity(ctx context.Context) ServiceHealth {
	if h.similarity == nil {
		return h.check(ctx, "similarity", true, func(context.Context) error { return nil })
	}
	return h.check(ctx, "similarity", true, h.similarity.Ping)
}

// CheckPostgreSQL checks the analytics database.
func (h *HealthChecker) CheckPostgreSQL(ctx context.Context) ServiceHealth {
	return h.check(ctx, "database", false, h.dbManager.PingDatabase)
}

// CheckRedis checks Redis cache health
func (h *HealthChecker) CheckRedis(ctx context.Context) ServiceHealth {
	return h.check(ctx, "redis", false, h.dbManager.PingRedis)
}

// CheckAll performs health checks on all services. Optional services only
// degrade the overall status.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := []ServiceHealth{
		h.CheckFeedbackStore(ctx),
		h.CheckSimilarity(ctx),
		h.CheckPostgreSQL(ctx),
		h.CheckRedis(ctx),
	}

	overallStatus := StatusHealthy
	for _, service := range services {
		if service.Status != StatusUnhealthy {
			continue
		}
		if service.Critical {
			overallStatus = StatusUnhealthy
			break
		}
		overallStatus = StatusDegraded
	}

	return OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}
}

var startTime = time.Now()

func (h *HealthChecker) getUptime() string {
	return time.Since(startTime).Round(time.Second).String()
}

// PeriodicHealthCheck runs health checks periodically
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.CheckAll(ctx)
			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}
