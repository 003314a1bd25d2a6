package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/learnhub/internal/transport"
	"github.com/Skotchmaster/learnhub/pkg/db"
)

type HealthHTTP struct {
	DB *gorm.DB
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, transport.OK("Server is running", map[string]string{"status": "ok"}))
}

// Ready reports 503 until the database answers a ping.
func (h *HealthHTTP) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil {
		return c.JSON(http.StatusServiceUnavailable, transport.Fail("database not configured"))
	}
	if err := db.Ping(ctx, h.DB); err != nil {
		handlerLogger(c, "health.ready").Warn("ready_check_failed", "status", 503, "error", err)
		return c.JSON(http.StatusServiceUnavailable, transport.Fail("database unavailable"))
	}
	return c.JSON(http.StatusOK, transport.OK("ready", map[string]string{"status": "ready"}))
}
