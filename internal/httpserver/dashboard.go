package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/backend/internal/service"
)

type DashboardHTTP struct {
	Svc *service.DashboardService
}

func (h *DashboardHTTP) Stats(c echo.Context) error {
	stats, err := h.Svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load stats")
	}
	return c.JSON(http.StatusOK, stats)
}
