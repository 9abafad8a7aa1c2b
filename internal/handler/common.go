package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// getUserID extracts the user_id placed in the context by JWTAuth and
// converts it to uint64.  JSON numbers arrive as float64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		if t > 0 {
			return uint64(t), nil
		}
	case int64:
		if t > 0 {
			return uint64(t), nil
		}
	case float64:
		if t > 0 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// writeError maps engine errors to an HTTP status and a stable code.
// Conflicts carry the offending seat ids so clients can redraw the map.
func writeError(c echo.Context, err error) error {
	status, code, msg := http.StatusInternalServerError, "internal", "internal error"
	switch {
	case errors.Is(err, reservation.ErrEmptySelection):
		status, code, msg = http.StatusBadRequest, "empty_selection", "seat_ids is required"
	case errors.Is(err, reservation.ErrSeatInvalid):
		status, code, msg = http.StatusBadRequest, "seat_invalid", "some seats do not belong to this occurrence"
	case errors.Is(err, reservation.ErrNotFound), errors.Is(err, reservation.ErrNotOwner):
		status, code, msg = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, reservation.ErrSeatAlreadyHeld):
		status, code, msg = http.StatusConflict, "seat_already_held", "some seats are held by another buyer"
	case errors.Is(err, reservation.ErrSeatAlreadySold):
		status, code, msg = http.StatusConflict, "seat_already_sold", "some seats are already sold"
	case errors.Is(err, reservation.ErrHoldExpired):
		status, code, msg = http.StatusConflict, "hold_expired", "hold expired, please select seats again"
	case errors.Is(err, reservation.ErrInvalidState):
		status, code, msg = http.StatusConflict, "invalid_state", "sale cannot change to the requested status"
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	body := echo.Map{"error": msg, "code": code}
	if ids := reservation.ConflictingSeats(err); len(ids) > 0 {
		body["seat_ids"] = ids
	}
	return c.JSON(status, body)
}

type holdResponse struct {
	HoldToken    string    `json:"hold_token"`
	OccurrenceID uint64    `json:"occurrence_id"`
	SeatIDs      []uint64  `json:"seat_ids"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func toHoldResponse(g *model.HoldGroup) holdResponse {
	return holdResponse{
		HoldToken:    g.Token,
		OccurrenceID: g.OccurrenceID,
		SeatIDs:      g.SeatIDs,
		ExpiresAt:    g.ExpiresAt.UTC(),
	}
}

type saleResponse struct {
	ID           string     `json:"id"`
	OccurrenceID uint64     `json:"occurrence_id"`
	Title        string     `json:"title,omitempty"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
	HallName     string     `json:"hall_name,omitempty"`
	Status       string     `json:"status"`
	TotalCents   int64      `json:"total_cents"`
	TicketCode   string     `json:"ticket_code,omitempty"`
	SeatIDs      []uint64   `json:"seat_ids"`
	Seats        []string   `json:"seats"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toSaleResponse(s *model.Sale) saleResponse {
	return saleResponse{
		ID:           s.ID,
		OccurrenceID: s.OccurrenceID,
		Status:       string(s.Status),
		TotalCents:   s.TotalCents,
		TicketCode:   s.TicketCode,
		SeatIDs:      s.SeatIDs(),
		Seats:        s.SeatLabels(),
		CreatedAt:    s.CreatedAt.UTC(),
	}
}

type seatStateResponse struct {
	SeatID uint64 `json:"seat_id"`
	Label  string `json:"label"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	State  string `json:"state"`
}
