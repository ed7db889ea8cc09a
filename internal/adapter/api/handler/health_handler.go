package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DependencyCheck reports whether a backing service is reachable.
type DependencyCheck func(ctx context.Context) error

type HealthHandler struct {
	dbDriver      string
	publisherMode string
	checks        map[string]DependencyCheck
}

var healthHandler *HealthHandler

func NewHealthHandler(dbDriver, publisherMode string, checks map[string]DependencyCheck) *HealthHandler {
	return &HealthHandler{
		dbDriver:      dbDriver,
		publisherMode: publisherMode,
		checks:        checks,
	}
}

func SetupHealthHandler(dbDriver, publisherMode string, checks map[string]DependencyCheck) {
	healthHandler = NewHealthHandler(dbDriver, publisherMode, checks)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"db_driver": h.dbDriver,
		"events":    h.publisherMode,
		"time":      time.Now().Format(time.RFC3339),
	})
}

// CheckReadiness runs every dependency check and reports 503 if any fails.
func (h *HealthHandler) CheckReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	return c.JSON(status, map[string]interface{}{
		"ready":  status == http.StatusOK,
		"checks": results,
	})
}
