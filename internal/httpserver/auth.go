package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/backend/internal/auth"
	"github.com/servicehub/backend/internal/auth/google"
	"github.com/servicehub/backend/internal/logging"
)

type AuthHTTP struct {
	Svc *auth.Service
}

// authError collapses expected auth failures to one generic 401 and keeps
// storage/upstream failures as opaque 500s, never exposing internal error
// text to the caller.
func authError(err error) error {
	if errors.Is(err, auth.ErrUnauthorized) {
		return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"message": "Invalid credentials"})
	}
	return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register bad body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return authError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login bad body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return authError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHTTP) GoogleCallback(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"message": "Authorization code is required"})
	}

	res, err := h.Svc.GoogleCallback(ctx, req.Code)
	if err != nil {
		if errors.Is(err, google.ErrEmptyCode) {
			return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"message": "Authorization code is required"})
		}
		return authError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHTTP) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"message": "Refresh token is required"})
	}

	res, err := h.Svc.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return authError(err)
	}
	return c.JSON(http.StatusOK, res)
}
