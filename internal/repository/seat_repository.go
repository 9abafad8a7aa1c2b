package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seat-reservation/internal/database"
	"github.com/iliyamo/seat-reservation/internal/model"
)

// SeatRepo reads the seat grid of a hall.  Seats are written once by
// HallRepo.Create and never modified.
type SeatRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB, d database.Dialect) *SeatRepo {
	return &SeatRepo{db: db, d: d}
}

// ListByHall returns every seat of the hall ordered by row then column.
func (r *SeatRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	return r.listByHall(ctx, r.db, hallID)
}

// ListByHallTx is ListByHall inside an open transaction.
func (r *SeatRepo) ListByHallTx(ctx context.Context, tx *sql.Tx, hallID uint64) ([]model.Seat, error) {
	return r.listByHall(ctx, tx, hallID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SeatRepo) listByHall(ctx context.Context, qr queryer, hallID uint64) ([]model.Seat, error) {
	const q = `SELECT id, hall_id, seat_row, seat_col, label FROM seats WHERE hall_id = ? ORDER BY seat_row, seat_col`
	rows, err := qr.QueryContext(ctx, r.d.Rebind(q), hallID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.HallID, &s.Row, &s.Col, &s.Label); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}
