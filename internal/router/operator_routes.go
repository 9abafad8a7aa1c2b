package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/handler"
	"github.com/iliyamo/seat-reservation/internal/middleware"
	"github.com/iliyamo/seat-reservation/internal/utils"
)

// RegisterOperator registers the catalog and maintenance endpoints under
// /v1/operator for the OPERATOR role.
func RegisterOperator(e *echo.Echo, h *handler.OperatorHandler, jwtSecret string) {
	g := e.Group(
		"/v1/operator",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleOperator),
	)
	g.POST("/halls", h.CreateHall)
	g.POST("/occurrences", h.CreateOccurrence)
	g.POST("/sweep", h.Sweep)
}
