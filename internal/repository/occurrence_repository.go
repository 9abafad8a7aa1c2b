package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/seat-reservation/internal/database"
	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// OccurrenceRepo manages persistence for occurrences.
type OccurrenceRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewOccurrenceRepo constructs an OccurrenceRepo.
func NewOccurrenceRepo(db *sql.DB, d database.Dialect) *OccurrenceRepo {
	return &OccurrenceRepo{db: db, d: d}
}

// Create inserts o and populates its ID and CreatedAt.  It returns
// reservation.ErrNotFound when the hall does not exist.
func (r *OccurrenceRepo) Create(ctx context.Context, o *model.Occurrence) error {
	var hallID uint64
	err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT id FROM halls WHERE id = ?`), o.HallID).Scan(&hallID)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.ErrNotFound
	}
	if err != nil {
		return err
	}

	o.CreatedAt = time.Now().UTC()
	o.StartsAt = o.StartsAt.UTC()
	id, err := r.d.InsertID(ctx, r.db,
		`INSERT INTO occurrences (hall_id, title, starts_at, price_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.HallID, o.Title, o.StartsAt, o.PriceCents, o.CreatedAt)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

// GetByID retrieves an occurrence by its ID.  It returns
// reservation.ErrNotFound if no row matches.
func (r *OccurrenceRepo) GetByID(ctx context.Context, id uint64) (*model.Occurrence, error) {
	return r.getByID(ctx, r.db, id)
}

// GetByIDTx is GetByID on the connection of an open transaction.
func (r *OccurrenceRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Occurrence, error) {
	return r.getByID(ctx, tx, id)
}

func (r *OccurrenceRepo) getByID(ctx context.Context, ex database.Execer, id uint64) (*model.Occurrence, error) {
	const q = `SELECT id, hall_id, title, starts_at, price_cents, created_at FROM occurrences WHERE id = ?`
	var o model.Occurrence
	err := ex.QueryRowContext(ctx, r.d.Rebind(q), id).
		Scan(&o.ID, &o.HallID, &o.Title, &o.StartsAt, &o.PriceCents, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
