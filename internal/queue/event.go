// Package queue carries sale events over RabbitMQ: the engine publishes
// sale.paid after a payment commits and the consumer appends each event to
// an audit log.
package queue

import (
	"time"

	"github.com/iliyamo/seat-reservation/internal/model"
)

// SalePaidQueue is the durable queue sale.paid events are routed to.
const SalePaidQueue = "sale.paid"

// SalePaidEvent is enough for downstream consumers to log or notify without
// querying the store.
type SalePaidEvent struct {
	SaleID       string   `json:"sale_id"`
	BuyerID      uint64   `json:"buyer_id"`
	OccurrenceID uint64   `json:"occurrence_id"`
	Title        string   `json:"title"`
	StartsAt     string   `json:"starts_at"`
	TicketCode   string   `json:"ticket_code"`
	Seats        []string `json:"seats"`
	TotalCents   int64    `json:"total_cents"`
	PaidAt       string   `json:"paid_at"`
}

// NewSalePaidEvent builds the event for a freshly paid sale.  occ may be
// nil when the occurrence could not be loaded.
func NewSalePaidEvent(sale *model.Sale, occ *model.Occurrence) SalePaidEvent {
	ev := SalePaidEvent{
		SaleID:       sale.ID,
		BuyerID:      sale.BuyerID,
		OccurrenceID: sale.OccurrenceID,
		TicketCode:   sale.TicketCode,
		Seats:        sale.SeatLabels(),
		TotalCents:   sale.TotalCents,
		PaidAt:       sale.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if occ != nil {
		ev.Title = occ.Title
		ev.StartsAt = occ.StartsAt.UTC().Format(time.RFC3339)
	}
	return ev
}
