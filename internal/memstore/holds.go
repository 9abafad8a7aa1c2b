package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

type holdLedger struct{ t *tx }

func (l holdLedger) CreateHold(ctx context.Context, h reservation.NewHold) (*model.HoldGroup, error) {
	s := l.t.s
	if _, dup := s.groups[h.Token]; dup {
		return nil, fmt.Errorf("hold token %s already exists", h.Token)
	}

	var invalid, sold, held []uint64
	for _, id := range h.SeatIDs {
		st, ok := s.seat(id)
		if !ok || st.HallID != h.HallID {
			invalid = append(invalid, id)
			continue
		}
		k := seatKey{h.OccurrenceID, id}
		if _, ok := s.soldTo[k]; ok {
			sold = append(sold, id)
			continue
		}
		// any existing row blocks, like the unique index does
		if _, ok := s.holds[k]; ok {
			held = append(held, id)
		}
	}
	switch {
	case len(invalid) > 0:
		return nil, reservation.NewSeatError(reservation.ErrSeatInvalid, invalid...)
	case len(sold) > 0:
		return nil, reservation.NewSeatError(reservation.ErrSeatAlreadySold, sold...)
	case len(held) > 0:
		return nil, reservation.NewSeatError(reservation.ErrSeatAlreadyHeld, held...)
	}

	ids := append([]uint64(nil), h.SeatIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	g := &model.HoldGroup{
		Token:        h.Token,
		BuyerID:      h.BuyerID,
		OccurrenceID: h.OccurrenceID,
		SeatIDs:      ids,
		ExpiresAt:    h.ExpiresAt,
		CreatedAt:    h.CreatedAt,
	}
	l.t.putGroup(g)
	for _, id := range ids {
		l.t.putHold(model.SeatHold{
			HoldToken:    g.Token,
			OccurrenceID: g.OccurrenceID,
			SeatID:       id,
			BuyerID:      g.BuyerID,
			ExpiresAt:    g.ExpiresAt,
		})
	}
	return copyGroup(g), nil
}

func (l holdLedger) Group(ctx context.Context, token string) (*model.HoldGroup, error) {
	g, ok := l.t.s.groups[token]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return copyGroup(g), nil
}

func (l holdLedger) Release(ctx context.Context, token string, buyerID uint64) error {
	g, ok := l.t.s.groups[token]
	if !ok || g.BuyerID != buyerID {
		return reservation.ErrNotFound
	}
	l.drop(g)
	return nil
}

func (l holdLedger) DeleteGroup(ctx context.Context, token string) error {
	if g, ok := l.t.s.groups[token]; ok {
		l.drop(g)
	}
	return nil
}

func (l holdLedger) SweepExpired(ctx context.Context, occurrenceID uint64, now time.Time) (int, error) {
	var expired []*model.HoldGroup
	for _, g := range l.t.s.groups {
		if occurrenceID != 0 && g.OccurrenceID != occurrenceID {
			continue
		}
		if g.Expired(now) {
			expired = append(expired, g)
		}
	}
	n := 0
	for _, g := range expired {
		n += l.drop(g)
	}
	return n, nil
}

func (l holdLedger) ListLive(ctx context.Context, occurrenceID uint64, now time.Time) (map[uint64]uint64, error) {
	out := make(map[uint64]uint64)
	for k, h := range l.t.s.holds {
		if k.occurrence == occurrenceID && h.ExpiresAt.After(now) {
			out[k.seat] = h.BuyerID
		}
	}
	return out, nil
}

// drop deletes a group and the holds it owns, returning the number of holds
// removed.
func (l holdLedger) drop(g *model.HoldGroup) int {
	n := 0
	for _, id := range g.SeatIDs {
		k := seatKey{g.OccurrenceID, id}
		if h, ok := l.t.s.holds[k]; ok && h.HoldToken == g.Token {
			l.t.deleteHold(k)
			n++
		}
	}
	l.t.deleteGroup(g.Token)
	return n
}

func copyGroup(g *model.HoldGroup) *model.HoldGroup {
	cp := *g
	cp.SeatIDs = append([]uint64(nil), g.SeatIDs...)
	return &cp
}
