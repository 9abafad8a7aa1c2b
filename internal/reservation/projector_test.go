package reservation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/seat-reservation/internal/model"
)

func TestSnapshotState(t *testing.T) {
	snap := &snapshot{
		sold: map[uint64]string{1: "s1"},
		held: map[uint64]uint64{1: 7, 2: 7, 3: 8},
	}
	assert.Equal(t, model.SeatSold, snap.state(1, 7), "sold wins over held")
	assert.Equal(t, model.SeatHeldByMe, snap.state(2, 7))
	assert.Equal(t, model.SeatHeld, snap.state(2, 0), "anonymous never sees own holds")
	assert.Equal(t, model.SeatHeld, snap.state(3, 7))
	assert.Equal(t, model.SeatAvailable, snap.state(4, 7))

	views := snap.project([]model.Seat{{ID: 2, Label: "A2"}, {ID: 4, Row: 1, Label: "B1"}}, 7)
	assert.Equal(t, []model.SeatView{
		{SeatID: 2, Label: "A2", State: model.SeatHeldByMe},
		{SeatID: 4, Row: 1, Label: "B1", State: model.SeatAvailable},
	}, views)
}

func TestCheckHoldable(t *testing.T) {
	snap := &snapshot{
		sold: map[uint64]string{5: "s1"},
		held: map[uint64]uint64{3: 9, 2: 7},
	}
	err := snap.checkHoldable([]uint64{1, 2, 3, 5})
	assert.ErrorIs(t, err, ErrSeatAlreadySold)
	assert.Equal(t, []uint64{5}, ConflictingSeats(err))

	err = snap.checkHoldable([]uint64{3, 1, 2})
	assert.ErrorIs(t, err, ErrSeatAlreadyHeld)
	assert.Equal(t, []uint64{2, 3}, ConflictingSeats(err))

	assert.NoError(t, snap.checkHoldable([]uint64{1, 4}))
}

func TestSeatErrorWrapping(t *testing.T) {
	err := fmt.Errorf("create hold: %w", NewSeatError(ErrSeatAlreadyHeld, 9, 4))
	assert.True(t, errors.Is(err, ErrSeatAlreadyHeld))
	assert.False(t, errors.Is(err, ErrSeatAlreadySold))
	assert.Equal(t, []uint64{4, 9}, ConflictingSeats(err))
	assert.Equal(t, "create hold: seat already held: [4,9]", err.Error())
	assert.Nil(t, ConflictingSeats(ErrNotFound))
}

func TestTicketCodeFormat(t *testing.T) {
	assert.Regexp(t, `^TKT-[0-9A-F]{10}$`, NewTicketCode())
	assert.Len(t, NewToken(), 32)
	assert.NotEqual(t, NewToken(), NewToken())
}
