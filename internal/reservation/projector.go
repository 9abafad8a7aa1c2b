package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/seat-reservation/internal/model"
)

// Projector derives per-seat availability for an occurrence from the
// catalog and both ledgers.
type Projector struct {
	store Store
	now   func() time.Time
}

// NewProjector returns a Projector reading from store.  now defaults to
// the UTC wall clock.
func NewProjector(store Store, now func() time.Time) *Projector {
	if now == nil {
		now = utcNow
	}
	return &Projector{store: store, now: now}
}

// Project returns every seat of the occurrence's hall, ordered by row then
// column, with its state for viewerID.  A viewerID of 0 is anonymous and
// never sees HELD_BY_ME.  Expired holds are swept first and both ledgers
// are read in the same transaction.
func (p *Projector) Project(ctx context.Context, occurrenceID, viewerID uint64) ([]model.SeatView, error) {
	occ, err := p.store.Catalog().Occurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	seats, err := p.store.Catalog().HallSeats(ctx, occ.HallID)
	if err != nil {
		return nil, fmt.Errorf("load hall seats: %w", err)
	}

	var views []model.SeatView
	err = p.store.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		now := p.now()
		if _, err := tx.Holds().SweepExpired(ctx, occ.ID, now); err != nil {
			return fmt.Errorf("sweep expired holds: %w", err)
		}
		snap, err := takeSnapshot(ctx, tx, occ.ID, now)
		if err != nil {
			return err
		}
		views = snap.project(seats, viewerID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// snapshot is the sold and live-held seat sets of one occurrence as read
// inside a single transaction.
type snapshot struct {
	sold map[uint64]string // seat -> sale id
	held map[uint64]uint64 // seat -> buyer id
}

func takeSnapshot(ctx context.Context, tx Tx, occurrenceID uint64, now time.Time) (*snapshot, error) {
	sold, err := tx.Sales().SoldSeats(ctx, occurrenceID)
	if err != nil {
		return nil, fmt.Errorf("load sold seats: %w", err)
	}
	held, err := tx.Holds().ListLive(ctx, occurrenceID, now)
	if err != nil {
		return nil, fmt.Errorf("load live holds: %w", err)
	}
	return &snapshot{sold: sold, held: held}, nil
}

// state classifies one seat.  SOLD wins over any hold.
func (s *snapshot) state(seatID, viewerID uint64) model.SeatState {
	if _, ok := s.sold[seatID]; ok {
		return model.SeatSold
	}
	if buyer, ok := s.held[seatID]; ok {
		if viewerID != 0 && buyer == viewerID {
			return model.SeatHeldByMe
		}
		return model.SeatHeld
	}
	return model.SeatAvailable
}

func (s *snapshot) project(seats []model.Seat, viewerID uint64) []model.SeatView {
	views := make([]model.SeatView, 0, len(seats))
	for _, st := range seats {
		views = append(views, model.SeatView{
			SeatID: st.ID,
			Row:    st.Row,
			Col:    st.Col,
			Label:  st.Label,
			State:  s.state(st.ID, viewerID),
		})
	}
	return views
}

// checkHoldable fails with the sold seats first, then with the held ones.
// Seats held by the requesting buyer still conflict: a new group cannot
// share seats with an existing one.
func (s *snapshot) checkHoldable(seatIDs []uint64) error {
	var sold, held []uint64
	for _, id := range seatIDs {
		switch s.state(id, 0) {
		case model.SeatSold:
			sold = append(sold, id)
		case model.SeatHeld:
			held = append(held, id)
		}
	}
	if len(sold) > 0 {
		return NewSeatError(ErrSeatAlreadySold, sold...)
	}
	if len(held) > 0 {
		return NewSeatError(ErrSeatAlreadyHeld, held...)
	}
	return nil
}

func utcNow() time.Time { return time.Now().UTC() }
