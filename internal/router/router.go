// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/handler"
	"github.com/iliyamo/seat-reservation/internal/middleware"
)

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the seat map endpoints.  The anonymous map and
// the layout need no token; the viewer map needs any valid token so the
// caller's own holds can be marked.  cache wraps the layout only.
func RegisterPublic(e *echo.Echo, h *handler.SeatMapHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/v1/occurrences/:id/seats", h.PublicSeats)
	e.GET("/v1/occurrences/:id/seats/me", h.MySeats, middleware.JWTAuth(jwtSecret))
	e.GET("/v1/occurrences/:id/layout", h.Layout, cache)
}
