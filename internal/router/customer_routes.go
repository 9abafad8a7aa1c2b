package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/handler"
	"github.com/iliyamo/seat-reservation/internal/middleware"
	"github.com/iliyamo/seat-reservation/internal/utils"
)

// RegisterBuyer registers the hold and sale endpoints under /v1.  All routes
// require a valid JWT and the CUSTOMER role; limiter guards hold creation.
func RegisterBuyer(e *echo.Echo, h *handler.BuyerHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleCustomer),
	)
	g.POST("/occurrences/:id/holds", h.HoldSeats, limiter)
	g.DELETE("/holds/:token", h.ReleaseHold)
	g.POST("/holds/:token/finalize", h.FinalizeHold)

	g.GET("/sales", h.ListSales)
	g.GET("/sales/:id", h.GetSale)
	g.POST("/sales/:id/pay", h.PaySale)
	g.POST("/sales/:id/cancel", h.CancelSale)
}
