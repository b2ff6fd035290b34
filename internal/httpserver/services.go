package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/repo"
	"github.com/servicehub/backend/internal/service"
)

type ServicesHTTP struct {
	Svc *service.CatalogService
}

func (h *ServicesHTTP) List(c echo.Context) error {
	items, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list services")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ServicesHTTP) Get(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	item, err := h.Svc.Get(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrServiceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "service not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load service")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ServicesHTTP) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query")
	}

	items, err := h.Svc.Search(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ServicesHTTP) Create(c echo.Context) error {
	var item models.Service
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	item.ID = 0

	if err := h.Svc.Create(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create service")
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *ServicesHTTP) Update(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var item models.Service
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	item.ID = uint(id)

	if err := h.Svc.Update(c.Request().Context(), &item); err != nil {
		if errors.Is(err, repo.ErrServiceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "service not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update service")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ServicesHTTP) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.Svc.Delete(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repo.ErrServiceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "service not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete service")
	}
	return c.NoContent(http.StatusNoContent)
}
