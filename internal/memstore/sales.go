package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

type saleLedger struct{ t *tx }

func (l saleLedger) CreateSale(ctx context.Context, ns reservation.NewSale) (*model.Sale, error) {
	s := l.t.s
	var sold []uint64
	for _, id := range ns.SeatIDs {
		if _, ok := s.soldTo[seatKey{ns.OccurrenceID, id}]; ok {
			sold = append(sold, id)
		}
	}
	if len(sold) > 0 {
		return nil, reservation.NewSeatError(reservation.ErrSeatAlreadySold, sold...)
	}

	seats := make([]model.SaleSeat, 0, len(ns.SeatIDs))
	for _, id := range ns.SeatIDs {
		st, _ := s.seat(id)
		seats = append(seats, model.SaleSeat{
			SaleID:       ns.ID,
			OccurrenceID: ns.OccurrenceID,
			SeatID:       id,
			Row:          st.Row,
			Col:          st.Col,
			Label:        st.Label,
		})
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Col < seats[j].Col
	})

	s.seq++
	row := &saleRow{seq: s.seq, sale: model.Sale{
		ID:           ns.ID,
		BuyerID:      ns.BuyerID,
		OccurrenceID: ns.OccurrenceID,
		Status:       model.SalePendingPayment,
		TotalCents:   ns.PricePerSeatCents * int64(len(seats)),
		Seats:        seats,
		CreatedAt:    ns.CreatedAt,
		UpdatedAt:    ns.CreatedAt,
	}}
	l.t.putSale(row)
	for _, ss := range seats {
		l.t.putSold(seatKey{ns.OccurrenceID, ss.SeatID}, ns.ID)
	}
	return copySale(&row.sale), nil
}

func (l saleLedger) owned(saleID string, buyerID uint64) (*saleRow, error) {
	row, ok := l.t.s.sales[saleID]
	if !ok || row.sale.BuyerID != buyerID {
		return nil, reservation.ErrNotFound
	}
	return row, nil
}

func (l saleLedger) Get(ctx context.Context, saleID string, buyerID uint64) (*model.Sale, error) {
	row, err := l.owned(saleID, buyerID)
	if err != nil {
		return nil, err
	}
	return copySale(&row.sale), nil
}

func (l saleLedger) MarkPaid(ctx context.Context, saleID string, buyerID uint64, ticketCode string, now time.Time) (*model.Sale, error) {
	row, err := l.owned(saleID, buyerID)
	if err != nil {
		return nil, err
	}
	switch row.sale.Status {
	case model.SalePaid:
		return copySale(&row.sale), nil
	case model.SaleCanceled:
		return nil, reservation.ErrInvalidState
	}
	next := &saleRow{seq: row.seq, sale: *copySale(&row.sale)}
	next.sale.Status = model.SalePaid
	next.sale.TicketCode = ticketCode
	next.sale.UpdatedAt = now
	l.t.putSale(next)
	return copySale(&next.sale), nil
}

func (l saleLedger) Cancel(ctx context.Context, saleID string, buyerID uint64, now time.Time) (*model.Sale, error) {
	row, err := l.owned(saleID, buyerID)
	if err != nil {
		return nil, err
	}
	switch row.sale.Status {
	case model.SalePaid:
		return nil, reservation.ErrInvalidState
	case model.SaleCanceled:
		return copySale(&row.sale), nil
	}
	for _, ss := range row.sale.Seats {
		l.t.deleteSold(seatKey{row.sale.OccurrenceID, ss.SeatID})
	}
	next := &saleRow{seq: row.seq, sale: *copySale(&row.sale)}
	next.sale.Status = model.SaleCanceled
	next.sale.Seats = nil
	next.sale.UpdatedAt = now
	l.t.putSale(next)
	return copySale(&next.sale), nil
}

func (l saleLedger) ListForBuyer(ctx context.Context, buyerID uint64) ([]model.Sale, error) {
	var rows []*saleRow
	for _, row := range l.t.s.sales {
		if row.sale.BuyerID == buyerID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].sale.CreatedAt.Equal(rows[j].sale.CreatedAt) {
			return rows[i].sale.CreatedAt.After(rows[j].sale.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]model.Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, *copySale(&row.sale))
	}
	return out, nil
}

func (l saleLedger) SoldSeats(ctx context.Context, occurrenceID uint64) (map[uint64]string, error) {
	out := make(map[uint64]string)
	for k, saleID := range l.t.s.soldTo {
		if k.occurrence == occurrenceID {
			out[k.seat] = saleID
		}
	}
	return out, nil
}

func copySale(s *model.Sale) *model.Sale {
	cp := *s
	if s.Seats != nil {
		cp.Seats = append([]model.SaleSeat(nil), s.Seats...)
	}
	return &cp
}
