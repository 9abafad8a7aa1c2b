package model

import "time"

// SaleStatus is the lifecycle state of a Sale.
type SaleStatus string

const (
	SalePendingPayment SaleStatus = "PENDING_PAYMENT"
	SalePaid           SaleStatus = "PAID"
	SaleCanceled       SaleStatus = "CANCELED"
)

// Sale is a buyer's committed purchase of one or more seats for an
// occurrence.  Seats are only attached while the sale is not canceled.
//
// Fields:
//  ID           – opaque identifier (hex uuid).
//  BuyerID      – purchasing buyer.
//  OccurrenceID – occurrence the seats belong to.
//  Status       – PENDING_PAYMENT, PAID or CANCELED.
//  TotalCents   – price per seat multiplied by the seat count.
//  TicketCode   – assigned once on payment, empty before.
//  Seats        – seats of the sale ordered by row then column.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last status change.
type Sale struct {
	ID           string     // sales.id
	BuyerID      uint64     // sales.buyer_id
	OccurrenceID uint64     // sales.occurrence_id
	Status       SaleStatus // sales.status
	TotalCents   int64      // sales.total_cents
	TicketCode   string     // sales.ticket_code (nullable)
	Seats        []SaleSeat
	CreatedAt    time.Time // sales.created_at
	UpdatedAt    time.Time // sales.updated_at
}

// SeatIDs returns the ids of the sale's seats in their stored order.
func (s *Sale) SeatIDs() []uint64 {
	ids := make([]uint64, 0, len(s.Seats))
	for _, ss := range s.Seats {
		ids = append(ids, ss.SeatID)
	}
	return ids
}

// SeatLabels returns the display labels of the sale's seats.
func (s *Sale) SeatLabels() []string {
	labels := make([]string, 0, len(s.Seats))
	for _, ss := range s.Seats {
		labels = append(labels, ss.Label)
	}
	return labels
}

// SaleSeat binds a seat to a sale.  At most one SaleSeat exists per
// (occurrence, seat); canceling a sale deletes its rows.
//
// Fields:
//  SaleID       – owning sale.
//  OccurrenceID – occurrence of the seat.
//  SeatID       – sold seat.
//  Row, Col     – grid position, joined from seats.
//  Label        – display label, joined from seats.
type SaleSeat struct {
	SaleID       string // sale_seats.sale_id
	OccurrenceID uint64 // sale_seats.occurrence_id
	SeatID       uint64 // sale_seats.seat_id
	Row          int
	Col          int
	Label        string
}
