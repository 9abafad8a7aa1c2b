package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/seat-reservation/internal/database"
	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// SeatHoldRepo provides data access to the hold_groups and seat_holds
// tables.  The unique key on seat_holds(occurrence_id, seat_id) is what
// keeps two groups from holding the same seat.  Every method runs inside a
// caller supplied transaction and compares expiry against the instant it is
// given, never the database clock.
type SeatHoldRepo struct {
	d database.Dialect
}

// NewSeatHoldRepo returns a new SeatHoldRepo for the dialect.
func NewSeatHoldRepo(d database.Dialect) *SeatHoldRepo { return &SeatHoldRepo{d: d} }

// CreateHoldTx inserts the group and one seat_holds row per seat.  Rows are
// inserted one at a time so a duplicate key names the seat that lost.  After
// the inserts the seats are checked against sale_seats with a locking read,
// which sees sales committed after this transaction started.
func (r *SeatHoldRepo) CreateHoldTx(ctx context.Context, tx *sql.Tx, h reservation.NewHold) (*model.HoldGroup, error) {
	ids := append([]uint64(nil), h.SeatIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	foreign, err := r.foreignSeatsTx(ctx, tx, h.HallID, ids)
	if err != nil {
		return nil, err
	}
	if len(foreign) > 0 {
		return nil, reservation.NewSeatError(reservation.ErrSeatInvalid, foreign...)
	}

	const qGroup = `INSERT INTO hold_groups (token, buyer_id, occurrence_id, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, r.d.Rebind(qGroup), h.Token, h.BuyerID, h.OccurrenceID, h.ExpiresAt.UTC(), h.CreatedAt.UTC()); err != nil {
		return nil, fmt.Errorf("insert hold group: %w", err)
	}

	const qHold = `INSERT INTO seat_holds (hold_token, occurrence_id, seat_id, buyer_id, expires_at) VALUES (?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, r.d.Rebind(qHold))
	if err != nil {
		return nil, fmt.Errorf("prepare seat hold insert: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, h.Token, h.OccurrenceID, id, h.BuyerID, h.ExpiresAt.UTC()); err != nil {
			if r.d.IsDuplicateKey(err) {
				return nil, reservation.NewSeatError(reservation.ErrSeatAlreadyHeld, id)
			}
			return nil, fmt.Errorf("insert seat hold %d: %w", id, err)
		}
	}

	sold, err := r.lockSoldTx(ctx, tx, h.OccurrenceID, ids)
	if err != nil {
		return nil, err
	}
	if len(sold) > 0 {
		return nil, reservation.NewSeatError(reservation.ErrSeatAlreadySold, sold...)
	}

	return &model.HoldGroup{
		Token:        h.Token,
		BuyerID:      h.BuyerID,
		OccurrenceID: h.OccurrenceID,
		SeatIDs:      ids,
		ExpiresAt:    h.ExpiresAt.UTC(),
		CreatedAt:    h.CreatedAt.UTC(),
	}, nil
}

// foreignSeatsTx returns the ids that are not seats of the hall.
func (r *SeatHoldRepo) foreignSeatsTx(ctx context.Context, tx *sql.Tx, hallID uint64, ids []uint64) ([]uint64, error) {
	q := `SELECT id FROM seats WHERE hall_id = ? AND id IN (` + database.Placeholders(len(ids)) + `)`
	found, err := scanIDs(ctx, tx, r.d.Rebind(q), append([]any{hallID}, idArgs(ids)...)...)
	if err != nil {
		return nil, fmt.Errorf("check hall seats: %w", err)
	}
	known := make(map[uint64]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	var bad []uint64
	for _, id := range ids {
		if !known[id] {
			bad = append(bad, id)
		}
	}
	return bad, nil
}

// lockSoldTx returns the seats among ids that already belong to a sale,
// locking the matching sale_seats rows.
func (r *SeatHoldRepo) lockSoldTx(ctx context.Context, tx *sql.Tx, occurrenceID uint64, ids []uint64) ([]uint64, error) {
	q := `SELECT seat_id FROM sale_seats WHERE occurrence_id = ? AND seat_id IN (` + database.Placeholders(len(ids)) + `) FOR UPDATE`
	sold, err := scanIDs(ctx, tx, r.d.Rebind(q), append([]any{occurrenceID}, idArgs(ids)...)...)
	if err != nil {
		return nil, fmt.Errorf("check sold seats: %w", err)
	}
	return sold, nil
}

// GroupTx loads a hold group with its seats and locks the group row.
func (r *SeatHoldRepo) GroupTx(ctx context.Context, tx *sql.Tx, token string) (*model.HoldGroup, error) {
	const q = `SELECT token, buyer_id, occurrence_id, expires_at, created_at FROM hold_groups WHERE token = ? FOR UPDATE`
	var g model.HoldGroup
	err := tx.QueryRowContext(ctx, r.d.Rebind(q), token).
		Scan(&g.Token, &g.BuyerID, &g.OccurrenceID, &g.ExpiresAt, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	g.SeatIDs, err = scanIDs(ctx, tx, r.d.Rebind(`SELECT seat_id FROM seat_holds WHERE hold_token = ? ORDER BY seat_id`), token)
	if err != nil {
		return nil, fmt.Errorf("load group seats: %w", err)
	}
	return &g, nil
}

// ReleaseTx deletes a group owned by buyerID and its holds.
func (r *SeatHoldRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, token string, buyerID uint64) error {
	res, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM hold_groups WHERE token = ? AND buyer_id = ?`), token, buyerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return reservation.ErrNotFound
	}
	_, err = tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM seat_holds WHERE hold_token = ?`), token)
	return err
}

// DeleteGroupTx deletes a group and its holds.  A missing group is not an
// error.
func (r *SeatHoldRepo) DeleteGroupTx(ctx context.Context, tx *sql.Tx, token string) error {
	if _, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM seat_holds WHERE hold_token = ?`), token); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM hold_groups WHERE token = ?`), token)
	return err
}

// SweepExpiredTx removes holds and groups whose expiry is at or before now,
// for one occurrence or for all when occurrenceID is 0.  It returns the
// number of seat holds removed.
func (r *SeatHoldRepo) SweepExpiredTx(ctx context.Context, tx *sql.Tx, occurrenceID uint64, now time.Time) (int, error) {
	qHolds := `DELETE FROM seat_holds WHERE expires_at <= ?`
	qGroups := `DELETE FROM hold_groups WHERE expires_at <= ?`
	args := []any{now.UTC()}
	if occurrenceID != 0 {
		qHolds += ` AND occurrence_id = ?`
		qGroups += ` AND occurrence_id = ?`
		args = append(args, occurrenceID)
	}
	res, err := tx.ExecContext(ctx, r.d.Rebind(qHolds), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, r.d.Rebind(qGroups), args...); err != nil {
		return 0, err
	}
	return int(n), nil
}

// ListLiveTx maps each seat with an unexpired hold to its buyer.
func (r *SeatHoldRepo) ListLiveTx(ctx context.Context, tx *sql.Tx, occurrenceID uint64, now time.Time) (map[uint64]uint64, error) {
	const q = `SELECT seat_id, buyer_id FROM seat_holds WHERE occurrence_id = ? AND expires_at > ?`
	rows, err := tx.QueryContext(ctx, r.d.Rebind(q), occurrenceID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]uint64)
	for rows.Next() {
		var seat, buyer uint64
		if err := rows.Scan(&seat, &buyer); err != nil {
			return nil, err
		}
		out[seat] = buyer
	}
	return out, rows.Err()
}

// scanIDs runs a single column query and collects the ids.  Rows are fully
// drained before returning so the transaction's connection is free again.
func scanIDs(ctx context.Context, tx *sql.Tx, q string, args ...any) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
