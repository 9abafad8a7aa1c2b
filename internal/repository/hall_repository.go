package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-reservation/internal/database"
	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// HallRepo creates halls together with their seat grid and reads them back.
type HallRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB, d database.Dialect) *HallRepo {
	return &HallRepo{db: db, d: d}
}

// Create inserts a hall and its rows x cols seats in one transaction.  Seat
// labels are generated from the grid position (A1, A2, ... B1, ...).
func (r *HallRepo) Create(ctx context.Context, name string, rows, cols int) (*model.Hall, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidLayout
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	h := &model.Hall{Name: name, Rows: rows, Cols: cols, CreatedAt: time.Now().UTC()}
	h.ID, err = r.d.InsertID(ctx, tx,
		`INSERT INTO halls (name, seat_rows, seat_cols, created_at) VALUES (?, ?, ?, ?)`,
		h.Name, h.Rows, h.Cols, h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert hall: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, r.d.Rebind(`INSERT INTO seats (hall_id, seat_row, seat_col, label) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("prepare seat insert: %w", err)
	}
	defer stmt.Close()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if _, err := stmt.ExecContext(ctx, h.ID, row, col, model.SeatLabel(row, col)); err != nil {
				return nil, fmt.Errorf("insert seat %s: %w", model.SeatLabel(row, col), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return h, nil
}

// GetByID retrieves a hall by its ID.  It returns reservation.ErrNotFound
// when no row is found.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	const q = `SELECT id, name, seat_rows, seat_cols, created_at FROM halls WHERE id = ?`
	var h model.Hall
	err := r.db.QueryRowContext(ctx, r.d.Rebind(q), id).Scan(&h.ID, &h.Name, &h.Rows, &h.Cols, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}
