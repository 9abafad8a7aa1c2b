package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// CatalogReader is the read side of the hall/occurrence catalog.
type CatalogReader interface {
	Occurrence(ctx context.Context, id uint64) (*model.Occurrence, error)
	Hall(ctx context.Context, id uint64) (*model.Hall, error)
	HallSeats(ctx context.Context, hallID uint64) ([]model.Seat, error)
}

// SeatMapHandler serves the availability projection and the static hall
// layout of an occurrence.
type SeatMapHandler struct {
	Engine  *reservation.Engine
	Catalog CatalogReader
}

type layoutSeat struct {
	SeatID uint64 `json:"seat_id"`
	Label  string `json:"label"`
	Col    int    `json:"col"`
}

type layoutRow struct {
	Row   string       `json:"row"`
	Seats []layoutSeat `json:"seats"`
}

// PublicSeats handles GET /v1/occurrences/:id/seats.  Anonymous viewers
// never see HELD_BY_ME.
func (h *SeatMapHandler) PublicSeats(c echo.Context) error {
	return h.project(c, 0)
}

// MySeats handles GET /v1/occurrences/:id/seats/me and marks the caller's
// own live holds as HELD_BY_ME.
func (h *SeatMapHandler) MySeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.project(c, userID)
}

func (h *SeatMapHandler) project(c echo.Context, viewerID uint64) error {
	occID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid occurrence id"})
	}
	views, err := h.Engine.Project(c.Request().Context(), occID, viewerID)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]seatStateResponse, 0, len(views))
	for _, v := range views {
		items = append(items, seatStateResponse{SeatID: v.SeatID, Label: v.Label, Row: v.Row, Col: v.Col, State: string(v.State)})
	}
	return c.JSON(http.StatusOK, echo.Map{"occurrence_id": occID, "items": items})
}

// Layout handles GET /v1/occurrences/:id/layout.  The response only changes
// when the hall does, so the router puts it behind the Redis cache.
func (h *SeatMapHandler) Layout(c echo.Context) error {
	ctx := c.Request().Context()
	occID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid occurrence id"})
	}
	occ, err := h.Catalog.Occurrence(ctx, occID)
	if err != nil {
		return writeError(c, err)
	}
	hall, err := h.Catalog.Hall(ctx, occ.HallID)
	if err != nil {
		return writeError(c, err)
	}
	seats, err := h.Catalog.HallSeats(ctx, hall.ID)
	if err != nil {
		return writeError(c, err)
	}
	rows := make([]layoutRow, 0, hall.Rows)
	for _, s := range seats {
		if len(rows) == 0 || rows[len(rows)-1].Row != model.RowLabel(s.Row) {
			rows = append(rows, layoutRow{Row: model.RowLabel(s.Row)})
		}
		last := &rows[len(rows)-1]
		last.Seats = append(last.Seats, layoutSeat{SeatID: s.ID, Label: s.Label, Col: s.Col})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"occurrence_id": occ.ID,
		"title":         occ.Title,
		"starts_at":     occ.StartsAt.UTC(),
		"price_cents":   occ.PriceCents,
		"hall":          echo.Map{"id": hall.ID, "name": hall.Name, "rows": hall.Rows, "cols": hall.Cols},
		"rows":          rows,
	})
}
