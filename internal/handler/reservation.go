package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// BuyerHandler exposes the hold and sale lifecycle to authenticated
// customers.  JWTAuth and RequireRoles run before every method.  Catalog
// adds the event title, start time and hall name to sale responses; it
// may be nil.
type BuyerHandler struct {
	Engine  *reservation.Engine
	Catalog CatalogReader
}

// NewBuyerHandler constructs a BuyerHandler.  The engine must be non-nil.
func NewBuyerHandler(engine *reservation.Engine, catalog CatalogReader) *BuyerHandler {
	if engine == nil {
		panic("nil engine passed to NewBuyerHandler")
	}
	return &BuyerHandler{Engine: engine, Catalog: catalog}
}

// HoldSeats handles POST /v1/occurrences/:id/holds.  The body carries a
// "seat_ids" array; the whole selection is held or nothing is.
func (h *BuyerHandler) HoldSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	occID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid occurrence id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	group, err := h.Engine.Hold(c.Request().Context(), occID, userID, body.SeatIDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toHoldResponse(group))
}

// ReleaseHold handles DELETE /v1/holds/:token.  Unknown tokens and holds
// of other buyers both answer 404.
func (h *BuyerHandler) ReleaseHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold token"})
	}
	if err := h.Engine.Release(c.Request().Context(), token, userID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// FinalizeHold handles POST /v1/holds/:token/finalize and turns a live
// hold into a sale awaiting payment.
func (h *BuyerHandler) FinalizeHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold token"})
	}
	sale, err := h.Engine.Finalize(c.Request().Context(), token, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, h.describer(c).sale(sale))
}

// ListSales handles GET /v1/sales, newest first.
func (h *BuyerHandler) ListSales(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sales, err := h.Engine.ListSales(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	d := h.describer(c)
	items := make([]saleResponse, 0, len(sales))
	for i := range sales {
		items = append(items, d.sale(&sales[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSale handles GET /v1/sales/:id.
func (h *BuyerHandler) GetSale(c echo.Context) error {
	return h.saleAction(c, h.Engine.GetSale)
}

// PaySale handles POST /v1/sales/:id/pay.  Paying twice returns the same
// ticket code.
func (h *BuyerHandler) PaySale(c echo.Context) error {
	return h.saleAction(c, h.Engine.ConfirmPayment)
}

// CancelSale handles POST /v1/sales/:id/cancel.  Paid sales cannot be
// canceled.
func (h *BuyerHandler) CancelSale(c echo.Context) error {
	return h.saleAction(c, h.Engine.CancelSale)
}

type saleFunc func(ctx context.Context, saleID string, buyerID uint64) (*model.Sale, error)

func (h *BuyerHandler) saleAction(c echo.Context, fn saleFunc) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	saleID := c.Param("id")
	if saleID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	sale, err := fn(c.Request().Context(), saleID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.describer(c).sale(sale))
}

func (h *BuyerHandler) describer(c echo.Context) *saleDescriber {
	return &saleDescriber{
		c:       c,
		catalog: h.Catalog,
		occs:    map[uint64]*model.Occurrence{},
		halls:   map[uint64]*model.Hall{},
	}
}

// saleDescriber builds sale responses for one request, loading each
// occurrence and hall at most once.  Lookup failures only drop the
// descriptive fields.
type saleDescriber struct {
	c       echo.Context
	catalog CatalogReader
	occs    map[uint64]*model.Occurrence
	halls   map[uint64]*model.Hall
}

func (d *saleDescriber) sale(s *model.Sale) saleResponse {
	resp := toSaleResponse(s)
	if d.catalog == nil {
		return resp
	}
	ctx := d.c.Request().Context()
	occ, ok := d.occs[s.OccurrenceID]
	if !ok {
		var err error
		if occ, err = d.catalog.Occurrence(ctx, s.OccurrenceID); err != nil {
			d.c.Logger().Warnf("sale %s: load occurrence %d: %v", s.ID, s.OccurrenceID, err)
		}
		d.occs[s.OccurrenceID] = occ
	}
	if occ == nil {
		return resp
	}
	starts := occ.StartsAt.UTC()
	resp.Title, resp.StartsAt = occ.Title, &starts

	hall, ok := d.halls[occ.HallID]
	if !ok {
		var err error
		if hall, err = d.catalog.Hall(ctx, occ.HallID); err != nil {
			d.c.Logger().Warnf("sale %s: load hall %d: %v", s.ID, occ.HallID, err)
		}
		d.halls[occ.HallID] = hall
	}
	if hall != nil {
		resp.HallName = hall.Name
	}
	return resp
}
