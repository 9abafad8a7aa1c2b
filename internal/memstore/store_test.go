package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func fixture(t *testing.T) (*Store, *model.Occurrence, []model.Seat) {
	t.Helper()
	ctx := context.Background()
	s := New()
	h, err := s.CreateHall(ctx, "Main", 2, 3)
	require.NoError(t, err)
	occ := &model.Occurrence{HallID: h.ID, Title: "Evening", StartsAt: t0, PriceCents: 1000}
	require.NoError(t, s.CreateOccurrence(ctx, occ))
	seats, err := s.HallSeats(ctx, h.ID)
	require.NoError(t, err)
	return s, occ, seats
}

func TestCatalogSeatGrid(t *testing.T) {
	s, occ, seats := fixture(t)
	require.Len(t, seats, 6)
	assert.Equal(t, "A1", seats[0].Label)
	assert.Equal(t, "B3", seats[5].Label)

	_, err := s.Occurrence(context.Background(), occ.ID+1000)
	assert.ErrorIs(t, err, reservation.ErrNotFound)

	err = s.CreateOccurrence(context.Background(), &model.Occurrence{HallID: 9999})
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestCreateHoldUniqueness(t *testing.T) {
	s, occ, seats := fixture(t)
	ctx := context.Background()
	hold := func(token string, buyer uint64, ids ...uint64) error {
		return s.Atomically(ctx, func(ctx context.Context, tx reservation.Tx) error {
			_, err := tx.Holds().CreateHold(ctx, reservation.NewHold{
				Token: token, BuyerID: buyer, OccurrenceID: occ.ID, HallID: occ.HallID,
				SeatIDs: ids, CreatedAt: t0, ExpiresAt: t0.Add(time.Minute),
			})
			return err
		})
	}

	require.NoError(t, hold("g1", 1, seats[0].ID, seats[1].ID))
	err := hold("g2", 2, seats[1].ID, seats[2].ID)
	assert.ErrorIs(t, err, reservation.ErrSeatAlreadyHeld)
	assert.Equal(t, []uint64{seats[1].ID}, reservation.ConflictingSeats(err))

	err = hold("g3", 2, 424242)
	assert.ErrorIs(t, err, reservation.ErrSeatInvalid)

	// the failed group left nothing behind
	require.NoError(t, hold("g4", 2, seats[2].ID))
}

func TestAtomicallyRollsBackOnError(t *testing.T) {
	s, occ, seats := fixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomically(ctx, func(ctx context.Context, tx reservation.Tx) error {
		_, err := tx.Holds().CreateHold(ctx, reservation.NewHold{
			Token: "g1", BuyerID: 1, OccurrenceID: occ.ID, HallID: occ.HallID,
			SeatIDs: []uint64{seats[0].ID}, CreatedAt: t0, ExpiresAt: t0.Add(time.Minute),
		})
		require.NoError(t, err)
		_, err = tx.Sales().CreateSale(ctx, reservation.NewSale{
			ID: "s1", BuyerID: 1, OccurrenceID: occ.ID, SeatIDs: []uint64{seats[0].ID},
			PricePerSeatCents: 1000, CreatedAt: t0,
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.Atomically(ctx, func(ctx context.Context, tx reservation.Tx) error {
		_, err := tx.Holds().Group(ctx, "g1")
		assert.ErrorIs(t, err, reservation.ErrNotFound)
		sold, err := tx.Sales().SoldSeats(ctx, occ.ID)
		require.NoError(t, err)
		assert.Empty(t, sold)
		live, err := tx.Holds().ListLive(ctx, occ.ID, t0)
		require.NoError(t, err)
		assert.Empty(t, live)
		return nil
	})
	require.NoError(t, err)
}

func TestSaleLifecycle(t *testing.T) {
	s, occ, seats := fixture(t)
	ctx := context.Background()

	var sale *model.Sale
	require.NoError(t, s.Atomically(ctx, func(ctx context.Context, tx reservation.Tx) error {
		var err error
		sale, err = tx.Sales().CreateSale(ctx, reservation.NewSale{
			ID: "s1", BuyerID: 7, OccurrenceID: occ.ID,
			SeatIDs: []uint64{seats[4].ID, seats[0].ID}, PricePerSeatCents: 1000, CreatedAt: t0,
		})
		return err
	}))
	assert.Equal(t, model.SalePendingPayment, sale.Status)
	assert.EqualValues(t, 2000, sale.TotalCents)
	assert.Equal(t, []string{"A1", "B2"}, sale.SeatLabels())

	require.NoError(t, s.Atomically(ctx, func(ctx context.Context, tx reservation.Tx) error {
		_, err := tx.Sales().Get(ctx, "s1", 8)
		assert.ErrorIs(t, err, reservation.ErrNotFound)

		canceled, err := tx.Sales().Cancel(ctx, "s1", 7, t0)
		require.NoError(t, err)
		assert.Equal(t, model.SaleCanceled, canceled.Status)
		assert.Empty(t, canceled.Seats)

		again, err := tx.Sales().Cancel(ctx, "s1", 7, t0)
		require.NoError(t, err)
		assert.Equal(t, model.SaleCanceled, again.Status)

		_, err = tx.Sales().MarkPaid(ctx, "s1", 7, "TKT-0000000000", t0)
		assert.ErrorIs(t, err, reservation.ErrInvalidState)

		sold, err := tx.Sales().SoldSeats(ctx, occ.ID)
		require.NoError(t, err)
		assert.Empty(t, sold)
		return nil
	}))
}
