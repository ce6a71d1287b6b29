package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/notes-service/pkg/logger"
	"github.com/suteetoe/notes-service/prometheus"
	"go.uber.org/zap"
)

// Pinger reports whether the database answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness, readiness detail, the banner and metrics
type HealthHandler struct {
	db          Pinger
	serviceName string
	environment string
	version     string
	dbDriver    string
	started     time.Time
}

// NewHealthHandler creates the health handler
func NewHealthHandler(db Pinger, serviceName, environment, version, dbDriver string) *HealthHandler {
	return &HealthHandler{
		db:          db,
		serviceName: serviceName,
		environment: environment,
		version:     version,
		dbDriver:    dbDriver,
		started:     time.Now(),
	}
}

// HealthCheck is a cheap liveness probe
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// DetailedHealthCheck pings the database and reports uptime and build info
func (h *HealthHandler) DetailedHealthCheck(c echo.Context) error {
	log := logger.FromContext(c)

	response := echo.Map{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.environment,
		"version":     h.version,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	services := echo.Map{"api": "operational", "database": "connected"}
	response["services"] = services
	if err := h.db.Ping(ctx); err != nil {
		log.Error("Database ping error", zap.Error(err))
		response["status"] = "error"
		services["database"] = "disconnected"
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	return c.JSON(http.StatusOK, response)
}

// Hello returns the service banner
func (h *HealthHandler) Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Multi-Tenant Notes API",
		"service":  h.serviceName,
		"version":  h.version,
		"status":   "operational",
		"database": h.dbDriver,
	})
}

// MetricsHandler exposes prometheus metrics
func MetricsHandler(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
