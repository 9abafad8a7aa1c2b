package reservation

import (
	"context"
	"time"

	"github.com/iliyamo/seat-reservation/internal/model"
)

// Catalog exposes the static data the engine needs: occurrences and the
// seat grid of their halls.
type Catalog interface {
	Occurrence(ctx context.Context, id uint64) (*model.Occurrence, error)
	// HallSeats returns the seats of a hall ordered by row then column.
	HallSeats(ctx context.Context, hallID uint64) ([]model.Seat, error)
}

// NewHold describes a hold group to be written by CreateHold.
type NewHold struct {
	Token        string
	BuyerID      uint64
	OccurrenceID uint64
	HallID       uint64
	SeatIDs      []uint64
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// HoldLedger stores hold groups and their seat holds.  It guarantees at
// most one SeatHold per (occurrence, seat).
type HoldLedger interface {
	// CreateHold writes the group and one SeatHold per seat.  It fails with
	// a *SeatError of kind ErrSeatInvalid, ErrSeatAlreadySold or
	// ErrSeatAlreadyHeld and then writes nothing.
	CreateHold(ctx context.Context, h NewHold) (*model.HoldGroup, error)
	// Group loads a group and its seats, locking it for the rest of the
	// transaction.  Expired groups that have not been swept are returned.
	Group(ctx context.Context, token string) (*model.HoldGroup, error)
	// Release deletes a group owned by buyerID.  ErrNotFound otherwise.
	Release(ctx context.Context, token string, buyerID uint64) error
	// DeleteGroup deletes a group and its holds unconditionally.
	DeleteGroup(ctx context.Context, token string) error
	// SweepExpired deletes holds with expiry <= now, restricted to one
	// occurrence unless occurrenceID is 0.  It returns the number of seat
	// holds removed.
	SweepExpired(ctx context.Context, occurrenceID uint64, now time.Time) (int, error)
	// ListLive maps each live held seat of the occurrence to its buyer.
	ListLive(ctx context.Context, occurrenceID uint64, now time.Time) (map[uint64]uint64, error)
}

// NewSale describes a sale to be written by CreateSale.
type NewSale struct {
	ID                string
	BuyerID           uint64
	OccurrenceID      uint64
	SeatIDs           []uint64
	PricePerSeatCents int64
	CreatedAt         time.Time
}

// SaleLedger stores sales and their seats.  It guarantees at most one
// SaleSeat per (occurrence, seat) across non-canceled sales.
type SaleLedger interface {
	// CreateSale writes a PENDING_PAYMENT sale.  It fails with a *SeatError
	// of kind ErrSeatAlreadySold and then writes nothing.
	CreateSale(ctx context.Context, s NewSale) (*model.Sale, error)
	// Get returns a sale owned by buyerID, ErrNotFound otherwise.
	Get(ctx context.Context, saleID string, buyerID uint64) (*model.Sale, error)
	// MarkPaid moves a pending sale to PAID with ticketCode.  A PAID sale is
	// returned unchanged; a CANCELED sale yields ErrInvalidState.
	MarkPaid(ctx context.Context, saleID string, buyerID uint64, ticketCode string, now time.Time) (*model.Sale, error)
	// Cancel removes the sale's seats and marks it CANCELED.  A PAID sale
	// yields ErrInvalidState; a CANCELED sale is returned unchanged.
	Cancel(ctx context.Context, saleID string, buyerID uint64, now time.Time) (*model.Sale, error)
	// ListForBuyer returns the buyer's sales, newest first.
	ListForBuyer(ctx context.Context, buyerID uint64) ([]model.Sale, error)
	// SoldSeats maps each sold seat of the occurrence to its sale id.
	SoldSeats(ctx context.Context, occurrenceID uint64) (map[uint64]string, error)
}

// Tx is one atomic unit of work over both ledgers.  Catalog reads made
// through it use the same transaction.
type Tx interface {
	Catalog() Catalog
	Holds() HoldLedger
	Sales() SaleLedger
}

// Store runs fn inside a transaction.  Everything fn writes through tx is
// committed when fn returns nil and discarded otherwise.
type Store interface {
	Catalog() Catalog
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Notifier receives domain events after the transaction that produced them
// has committed.
type Notifier interface {
	SalePaid(ctx context.Context, sale *model.Sale, occ *model.Occurrence) error
}
