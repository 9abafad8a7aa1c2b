package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// CatalogWriter creates halls and occurrences.  Both the SQL catalog and
// the in-memory store implement it.
type CatalogWriter interface {
	CatalogReader
	CreateHall(ctx context.Context, name string, rows, cols int) (*model.Hall, error)
	CreateOccurrence(ctx context.Context, o *model.Occurrence) error
}

// OperatorHandler holds the administrative endpoints.  Routes are limited
// to the OPERATOR role.
type OperatorHandler struct {
	Catalog CatalogWriter
	Engine  *reservation.Engine
}

// maxLayoutSide bounds halls to a sensible size.
const maxLayoutSide = 200

// CreateHall handles POST /v1/operator/halls and creates a hall together
// with its rows x cols seat grid.
func (h *OperatorHandler) CreateHall(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
		Rows int    `json:"rows"`
		Cols int    `json:"cols"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" || body.Rows <= 0 || body.Cols <= 0 || body.Rows > maxLayoutSide || body.Cols > maxLayoutSide {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "name, rows and cols are required; rows and cols must be between 1 and " + strconv.Itoa(maxLayoutSide),
		})
	}
	hall, err := h.Catalog.CreateHall(c.Request().Context(), name, body.Rows, body.Cols)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id": hall.ID, "name": hall.Name, "rows": hall.Rows, "cols": hall.Cols, "seats": hall.Rows * hall.Cols,
	})
}

// CreateOccurrence handles POST /v1/operator/occurrences.  starts_at must be
// RFC 3339.
func (h *OperatorHandler) CreateOccurrence(c echo.Context) error {
	var body struct {
		HallID     uint64 `json:"hall_id"`
		Title      string `json:"title"`
		StartsAt   string `json:"starts_at"`
		PriceCents int64  `json:"price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.Title)
	if body.HallID == 0 || title == "" || body.PriceCents < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hall_id and title are required; price_cents cannot be negative"})
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	occ := &model.Occurrence{HallID: body.HallID, Title: title, StartsAt: startsAt.UTC(), PriceCents: body.PriceCents}
	if err := h.Catalog.CreateOccurrence(c.Request().Context(), occ); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id": occ.ID, "hall_id": occ.HallID, "title": occ.Title, "starts_at": occ.StartsAt, "price_cents": occ.PriceCents,
	})
}

// Sweep handles POST /v1/operator/sweep and deletes expired holds.  An
// occurrence_id query parameter narrows the sweep to one occurrence.
func (h *OperatorHandler) Sweep(c echo.Context) error {
	var occID uint64
	if raw := c.QueryParam("occurrence_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid occurrence_id"})
		}
		occID = id
	}
	n, err := h.Engine.SweepExpired(c.Request().Context(), occID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"occurrence_id": occID, "swept": n})
}
