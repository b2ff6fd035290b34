package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	authmw "github.com/servicehub/backend/internal/middleware/auth"
)

type Deps struct {
	Auth      *AuthHTTP
	Services  *ServicesHTTP
	Orders    *OrdersHTTP
	Dashboard *DashboardHTTP
	Bearer    *authmw.BearerAuth

	CORSAllowedOrigins []string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	if len(d.CORSAllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     d.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/google/callback", d.Auth.GoogleCallback)
	authGroup.POST("/refresh-token", d.Auth.RefreshToken)

	services := api.Group("/services")
	services.GET("", d.Services.List)
	services.GET("/search", d.Services.Search)
	services.GET("/:id", d.Services.Get)

	adminServices := api.Group("/services", d.Bearer.RequireAdmin)
	adminServices.POST("", d.Services.Create)
	adminServices.PUT("/:id", d.Services.Update)
	adminServices.DELETE("/:id", d.Services.Delete)

	orders := api.Group("/orders", d.Bearer.RequireAuth)
	orders.POST("", d.Orders.Create)
	orders.GET("", d.Orders.ListMine)

	adminOrders := api.Group("/orders", d.Bearer.RequireAdmin)
	adminOrders.GET("/all", d.Orders.ListAll)

	dashboard := api.Group("/dashboard", d.Bearer.RequireAdmin)
	dashboard.GET("/stats", d.Dashboard.Stats)
}
