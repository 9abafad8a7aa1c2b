// Package reservation implements the seat reservation engine: temporary
// seat holds, their lazy expiry, and the atomic conversion of a hold into
// a sale.  Persistence is abstracted behind Store so the same engine runs
// over MySQL, Postgres or the in-memory store.
package reservation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/seat-reservation/internal/model"
)

// DefaultHoldTTL is how long a hold stays live when no TTL is configured.
const DefaultHoldTTL = 15 * time.Minute

// Engine coordinates the hold and sale ledgers.  Every operation runs in a
// single Store transaction; conflicting callers are serialized by the
// ledgers' uniqueness guarantees and the first writer wins.
type Engine struct {
	store     Store
	projector *Projector
	ttl       time.Duration
	now       func() time.Time
	notifier  Notifier
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the UTC wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifier registers a receiver for sale.paid events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// NewEngine returns an Engine over store.  A negative ttl selects
// DefaultHoldTTL; a zero ttl creates holds that are expired on arrival.
func NewEngine(store Store, ttl time.Duration, opts ...Option) *Engine {
	if ttl < 0 {
		ttl = DefaultHoldTTL
	}
	e := &Engine{store: store, ttl: ttl, now: utcNow}
	for _, opt := range opts {
		opt(e)
	}
	e.projector = NewProjector(store, e.now)
	return e
}

// HoldTTL reports the configured hold lifetime.
func (e *Engine) HoldTTL() time.Duration { return e.ttl }

// Hold reserves seatIDs of an occurrence for buyerID under a fresh token.
// Duplicate ids are collapsed.  Either every seat is held or none is.
func (e *Engine) Hold(ctx context.Context, occurrenceID, buyerID uint64, seatIDs []uint64) (*model.HoldGroup, error) {
	ids := uniqueSeatIDs(seatIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	occ, err := e.store.Catalog().Occurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	seats, err := e.store.Catalog().HallSeats(ctx, occ.HallID)
	if err != nil {
		return nil, fmt.Errorf("load hall seats: %w", err)
	}
	if invalid := foreignSeats(seats, ids); len(invalid) > 0 {
		return nil, NewSeatError(ErrSeatInvalid, invalid...)
	}

	var group *model.HoldGroup
	err = e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		now := e.now()
		if _, err := tx.Holds().SweepExpired(ctx, occ.ID, now); err != nil {
			return fmt.Errorf("sweep expired holds: %w", err)
		}
		snap, err := takeSnapshot(ctx, tx, occ.ID, now)
		if err != nil {
			return err
		}
		if err := snap.checkHoldable(ids); err != nil {
			return err
		}
		group, err = tx.Holds().CreateHold(ctx, NewHold{
			Token:        NewToken(),
			BuyerID:      buyerID,
			OccurrenceID: occ.ID,
			HallID:       occ.HallID,
			SeatIDs:      ids,
			CreatedAt:    now,
			ExpiresAt:    now.Add(e.ttl),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Release drops a hold group owned by buyerID.
func (e *Engine) Release(ctx context.Context, token string, buyerID uint64) error {
	return e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Holds().Release(ctx, token, buyerID)
	})
}

// Finalize converts a live hold group into a PENDING_PAYMENT sale and
// deletes the group, all in one transaction.  An expired group yields
// ErrHoldExpired after the expired holds have been swept.
func (e *Engine) Finalize(ctx context.Context, token string, buyerID uint64) (*model.Sale, error) {
	var (
		sale    *model.Sale
		expired bool
	)
	err := e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		sale, expired = nil, false
		now := e.now()
		group, err := tx.Holds().Group(ctx, token)
		if err != nil {
			return err
		}
		if group.BuyerID != buyerID {
			return ErrNotOwner
		}
		if _, err := tx.Holds().SweepExpired(ctx, group.OccurrenceID, now); err != nil {
			return fmt.Errorf("sweep expired holds: %w", err)
		}
		if group.Expired(now) {
			// commit the sweep, report the expiry afterwards
			expired = true
			return nil
		}
		occ, err := tx.Catalog().Occurrence(ctx, group.OccurrenceID)
		if err != nil {
			return err
		}
		sale, err = tx.Sales().CreateSale(ctx, NewSale{
			ID:                NewToken(),
			BuyerID:           buyerID,
			OccurrenceID:      group.OccurrenceID,
			SeatIDs:           group.SeatIDs,
			PricePerSeatCents: occ.PriceCents,
			CreatedAt:         now,
		})
		if err != nil {
			return err
		}
		return tx.Holds().DeleteGroup(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrHoldExpired
	}
	return sale, nil
}

// ConfirmPayment marks a sale as paid and assigns its ticket code.  Calling
// it again on a paid sale returns the sale unchanged.  A sale.paid event is
// sent to the notifier only by the call whose ticket code was stored.
func (e *Engine) ConfirmPayment(ctx context.Context, saleID string, buyerID uint64) (*model.Sale, error) {
	var sale *model.Sale
	code := NewTicketCode()
	err := e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		sale, err = tx.Sales().MarkPaid(ctx, saleID, buyerID, code, e.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	// an already paid sale keeps the code of the call that paid it
	if sale.TicketCode == code {
		e.notifySalePaid(ctx, sale)
	}
	return sale, nil
}

func (e *Engine) notifySalePaid(ctx context.Context, sale *model.Sale) {
	if e.notifier == nil {
		return
	}
	occ, err := e.store.Catalog().Occurrence(ctx, sale.OccurrenceID)
	if err != nil {
		log.Warnf("sale.paid: load occurrence %d: %v", sale.OccurrenceID, err)
		return
	}
	if err := e.notifier.SalePaid(ctx, sale, occ); err != nil {
		log.Warnf("sale.paid: publish sale %s: %v", sale.ID, err)
	}
}

// CancelSale cancels an unpaid sale and frees its seats.
func (e *Engine) CancelSale(ctx context.Context, saleID string, buyerID uint64) (*model.Sale, error) {
	var sale *model.Sale
	err := e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		sale, err = tx.Sales().Cancel(ctx, saleID, buyerID, e.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// GetSale returns one of the buyer's sales.
func (e *Engine) GetSale(ctx context.Context, saleID string, buyerID uint64) (*model.Sale, error) {
	var sale *model.Sale
	err := e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		sale, err = tx.Sales().Get(ctx, saleID, buyerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// ListSales returns the buyer's sales, newest first.
func (e *Engine) ListSales(ctx context.Context, buyerID uint64) ([]model.Sale, error) {
	var sales []model.Sale
	err := e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		sales, err = tx.Sales().ListForBuyer(ctx, buyerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// SweepExpired removes expired holds of one occurrence, or of all
// occurrences when occurrenceID is 0, and reports how many seat holds were
// deleted.
func (e *Engine) SweepExpired(ctx context.Context, occurrenceID uint64) (int, error) {
	var n int
	err := e.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		n, err = tx.Holds().SweepExpired(ctx, occurrenceID, e.now())
		return err
	})
	return n, err
}

// Project returns the seat map of an occurrence for viewerID (0 for an
// anonymous viewer).
func (e *Engine) Project(ctx context.Context, occurrenceID, viewerID uint64) ([]model.SeatView, error) {
	return e.projector.Project(ctx, occurrenceID, viewerID)
}

func uniqueSeatIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// foreignSeats returns the ids that are not seats of the hall.
func foreignSeats(hall []model.Seat, ids []uint64) []uint64 {
	known := make(map[uint64]struct{}, len(hall))
	for _, s := range hall {
		known[s.ID] = struct{}{}
	}
	var bad []uint64
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			bad = append(bad, id)
		}
	}
	return bad
}
