package repository

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

// SaleRepo provides data access to the sales and sale_seats tables.  The
// unique key on sale_seats(occurrence_id, seat_id) keeps a seat in at most
// one live sale; canceling deletes the sale_seats rows.
type SaleRepo struct {
	d database.Dialect
}

// NewSaleRepo returns a SaleRepo for the dialect.
func NewSaleRepo(d database.Dialect) *SaleRepo { return &SaleRepo{d: d} }

const saleColumns = `id, buyer_id, occurrence_id, status, total_cents, ticket_code, created_at, updated_at`

// CreateTx inserts a PENDING_PAYMENT sale and one sale_seats row per seat.
// A duplicate key on sale_seats means another sale owns the seat.
func (r *SaleRepo) CreateTx(ctx context.Context, tx *sql.Tx, ns reservation.NewSale) (*model.Sale, error) {
	created := ns.CreatedAt.UTC()
	total := ns.PricePerSeatCents * int64(len(ns.SeatIDs))
	const qSale = `INSERT INTO sales (id, buyer_id, occurrence_id, status, total_cents, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, r.d.Rebind(qSale), ns.ID, ns.BuyerID, ns.OccurrenceID, string(model.SalePendingPayment), total, created, created); err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, r.d.Rebind(`INSERT INTO sale_seats (sale_id, occurrence_id, seat_id) VALUES (?, ?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("prepare sale seat insert: %w", err)
	}
	defer stmt.Close()
	for _, id := range ns.SeatIDs {
		if _, err := stmt.ExecContext(ctx, ns.ID, ns.OccurrenceID, id); err != nil {
			if r.d.IsDuplicateKey(err) {
				return nil, reservation.NewSeatError(reservation.ErrSeatAlreadySold, id)
			}
			return nil, fmt.Errorf("insert sale seat %d: %w", id, err)
		}
	}

	s := &model.Sale{
		ID:           ns.ID,
		BuyerID:      ns.BuyerID,
		OccurrenceID: ns.OccurrenceID,
		Status:       model.SalePendingPayment,
		TotalCents:   total,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if s.Seats, err = r.seatsTx(ctx, tx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// GetTx loads a sale owned by buyerID.  When lock is set the row stays
// locked until the transaction ends.
func (r *SaleRepo) GetTx(ctx context.Context, tx *sql.Tx, saleID string, buyerID uint64, lock bool) (*model.Sale, error) {
	q := `SELECT ` + saleColumns + ` FROM sales WHERE id = ? AND buyer_id = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	s, err := scanSale(tx.QueryRowContext(ctx, r.d.Rebind(q), saleID, buyerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	if s.Seats, err = r.seatsTx(ctx, tx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// MarkPaidTx moves a pending sale to PAID.  Paying twice returns the sale
// with its original ticket code.
func (r *SaleRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, saleID string, buyerID uint64, ticketCode string, now time.Time) (*model.Sale, error) {
	s, err := r.GetTx(ctx, tx, saleID, buyerID, true)
	if err != nil {
		return nil, err
	}
	switch s.Status {
	case model.SalePaid:
		return s, nil
	case model.SaleCanceled:
		return nil, reservation.ErrInvalidState
	}
	const q = `UPDATE sales SET status = ?, ticket_code = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, r.d.Rebind(q), string(model.SalePaid), ticketCode, now.UTC(), s.ID); err != nil {
		return nil, fmt.Errorf("mark sale paid: %w", err)
	}
	s.Status = model.SalePaid
	s.TicketCode = ticketCode
	s.UpdatedAt = now.UTC()
	return s, nil
}

// CancelTx frees the seats of an unpaid sale and marks it CANCELED.
func (r *SaleRepo) CancelTx(ctx context.Context, tx *sql.Tx, saleID string, buyerID uint64, now time.Time) (*model.Sale, error) {
	s, err := r.GetTx(ctx, tx, saleID, buyerID, true)
	if err != nil {
		return nil, err
	}
	switch s.Status {
	case model.SalePaid:
		return nil, reservation.ErrInvalidState
	case model.SaleCanceled:
		return s, nil
	}
	if _, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM sale_seats WHERE sale_id = ?`), s.ID); err != nil {
		return nil, fmt.Errorf("delete sale seats: %w", err)
	}
	const q = `UPDATE sales SET status = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, r.d.Rebind(q), string(model.SaleCanceled), now.UTC(), s.ID); err != nil {
		return nil, fmt.Errorf("cancel sale: %w", err)
	}
	s.Status = model.SaleCanceled
	s.Seats = nil
	s.UpdatedAt = now.UTC()
	return s, nil
}

// ListForBuyerTx returns all sales of a buyer, newest first, with their
// seats ordered by row and column.
func (r *SaleRepo) ListForBuyerTx(ctx context.Context, tx *sql.Tx, buyerID uint64) ([]model.Sale, error) {
	q := `SELECT ` + saleColumns + ` FROM sales WHERE buyer_id = ? ORDER BY created_at DESC, seq DESC`
	rows, err := tx.QueryContext(ctx, r.d.Rebind(q), buyerID)
	if err != nil {
		return nil, err
	}
	var sales []model.Sale
	index := map[string]int{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[s.ID] = len(sales)
		sales = append(sales, *s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	const qSeats = `SELECT ss.sale_id, ss.occurrence_id, ss.seat_id, s.seat_row, s.seat_col, s.label
	                FROM sale_seats ss
	                JOIN sales sa ON sa.id = ss.sale_id
	                JOIN seats s ON s.id = ss.seat_id
	                WHERE sa.buyer_id = ?
	                ORDER BY s.seat_row, s.seat_col`
	seatRows, err := tx.QueryContext(ctx, r.d.Rebind(qSeats), buyerID)
	if err != nil {
		return nil, err
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var ss model.SaleSeat
		if err := seatRows.Scan(&ss.SaleID, &ss.OccurrenceID, &ss.SeatID, &ss.Row, &ss.Col, &ss.Label); err != nil {
			return nil, err
		}
		if i, ok := index[ss.SaleID]; ok {
			sales[i].Seats = append(sales[i].Seats, ss)
		}
	}
	return sales, seatRows.Err()
}

// SoldSeatsTx maps each sold seat of the occurrence to its sale.
func (r *SaleRepo) SoldSeatsTx(ctx context.Context, tx *sql.Tx, occurrenceID uint64) (map[uint64]string, error) {
	rows, err := tx.QueryContext(ctx, r.d.Rebind(`SELECT seat_id, sale_id FROM sale_seats WHERE occurrence_id = ?`), occurrenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]string)
	for rows.Next() {
		var seat uint64
		var sale string
		if err := rows.Scan(&seat, &sale); err != nil {
			return nil, err
		}
		out[seat] = sale
	}
	return out, rows.Err()
}

func (r *SaleRepo) seatsTx(ctx context.Context, tx *sql.Tx, saleID string) ([]model.SaleSeat, error) {
	const q = `SELECT ss.sale_id, ss.occurrence_id, ss.seat_id, s.seat_row, s.seat_col, s.label
	           FROM sale_seats ss JOIN seats s ON s.id = ss.seat_id
	           WHERE ss.sale_id = ?
	           ORDER BY s.seat_row, s.seat_col`
	rows, err := tx.QueryContext(ctx, r.d.Rebind(q), saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale seats: %w", err)
	}
	defer rows.Close()
	var seats []model.SaleSeat
	for rows.Next() {
		var ss model.SaleSeat
		if err := rows.Scan(&ss.SaleID, &ss.OccurrenceID, &ss.SeatID, &ss.Row, &ss.Col, &ss.Label); err != nil {
			return nil, err
		}
		seats = append(seats, ss)
	}
	return seats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*model.Sale, error) {
	var (
		s      model.Sale
		status string
		ticket sql.NullString
	)
	if err := row.Scan(&s.ID, &s.BuyerID, &s.OccurrenceID, &status, &s.TotalCents, &ticket, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = model.SaleStatus(status)
	s.TicketCode = ticket.String
	return &s, nil
}
