package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/go-invoices/internal/middleware"
	"github.com/deppfellow/go-invoices/internal/server"
)

// checkFunc pings one dependency.
type checkFunc func(ctx context.Context) error

type dependencyCheck struct {
	name  string
	check checkFunc
}

type HealthHandler struct {
	Handler
	checks  []dependencyCheck
	timeout time.Duration
}

// NewHealthHandler checks every dependency enabled in the observability
// config.
func NewHealthHandler(s *server.Server) *HealthHandler {
	obs := s.Config.Observability

	var checks []dependencyCheck
	if obs.HealthCheckEnabled("database") && s.DB != nil {
		checks = append(checks, dependencyCheck{"database", s.DB.Pool.Ping})
	}
	if obs.HealthCheckEnabled("redis") && s.Redis != nil {
		checks = append(checks, dependencyCheck{"redis", func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		}})
	}

	return &HealthHandler{
		Handler: NewHandler(s),
		checks:  checks,
		timeout: obs.HealthChecks.Timeout,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().Str("operation", "health_check").Logger()

	checks := make(map[string]interface{}, len(h.checks))
	healthy := true

	for _, dep := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
		checkStart := time.Now()
		err := dep.check(ctx)
		elapsed := time.Since(checkStart)
		cancel()

		if err != nil {
			healthy = false
			checks[dep.name] = map[string]interface{}{
				"status":        "unhealthy",
				"response_time": elapsed.String(),
				"error":         err.Error(),
			}

			logger.Error().Err(err).Str("check", dep.name).Dur("response_time", elapsed).Msg("health check failed")
			h.recordEvent(map[string]interface{}{
				"check_type":       dep.name,
				"error_type":       dep.name + "_unhealthy",
				"response_time_ms": elapsed.Milliseconds(),
				"error_message":    err.Error(),
			})
			continue
		}

		checks[dep.name] = map[string]interface{}{
			"status":        "healthy",
			"response_time": elapsed.String(),
		}
	}

	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.environment(),
		"checks":      checks,
	}

	if !healthy {
		response["status"] = "unhealthy"
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("service unhealthy")
		h.recordEvent(map[string]interface{}{
			"check_type":        "overall",
			"error_type":        "overall_unhealthy",
			"total_duration_ms": time.Since(start).Milliseconds(),
		})
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().Dur("total_duration", time.Since(start)).Msg("health check passed")
	return c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) environment() string {
	if h.server == nil {
		return ""
	}
	return h.server.Config.Primary.Env
}

func (h *HealthHandler) recordEvent(params map[string]interface{}) {
	if h.server == nil {
		return
	}
	params["operation"] = "health_check"
	h.server.LoggerService.RecordEvent("HealthCheckError", params)
}
