package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

var saleCols = []string{"id", "buyer_id", "occurrence_id", "status", "total_cents", "ticket_code", "created_at", "updated_at"}

func seatCols() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"sale_id", "occurrence_id", "seat_id", "seat_row", "seat_col", "label"})
}

func TestSaleCreateTx(t *testing.T) {
	_, mock, tx := beginTx(t)
	repo := NewSaleRepo(mysqlDialect)

	mock.ExpectExec(q(`INSERT INTO sales`)).
		WithArgs("s1", 9, 3, "PENDING_PAYMENT", 2400, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare(q(`INSERT INTO sale_seats (sale_id, occurrence_id, seat_id) VALUES (?, ?, ?)`))
	prep.ExpectExec().WithArgs("s1", 3, 4).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("s1", 3, 5).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(q(`WHERE ss.sale_id = ?`)).
		WithArgs("s1").
		WillReturnRows(seatCols().AddRow("s1", 3, 4, 0, 3, "A4").AddRow("s1", 3, 5, 0, 4, "A5"))

	s, err := repo.CreateTx(context.Background(), tx, reservation.NewSale{
		ID: "s1", BuyerID: 9, OccurrenceID: 3, SeatIDs: []uint64{4, 5}, PricePerSeatCents: 1200, CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SalePendingPayment, s.Status)
	assert.EqualValues(t, 2400, s.TotalCents)
	assert.Equal(t, []string{"A4", "A5"}, s.SeatLabels())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleCreateTxUniqueViolationPostgres(t *testing.T) {
	_, mock, tx := beginTx(t)
	repo := NewSaleRepo(pgDialect)

	mock.ExpectExec(q(`INSERT INTO sales (id, buyer_id, occurrence_id, status, total_cents, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare(q(`INSERT INTO sale_seats (sale_id, occurrence_id, seat_id) VALUES ($1, $2, $3)`))
	prep.ExpectExec().WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_sold_seat_once"})

	_, err := repo.CreateTx(context.Background(), tx, reservation.NewSale{
		ID: "s2", BuyerID: 9, OccurrenceID: 3, SeatIDs: []uint64{4}, PricePerSeatCents: 1200, CreatedAt: now,
	})
	require.ErrorIs(t, err, reservation.ErrSeatAlreadySold)
	assert.Equal(t, []uint64{4}, reservation.ConflictingSeats(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectSale(mock sqlmock.Sqlmock, status string, ticket any) {
	mock.ExpectQuery(q(`FROM sales WHERE id = ? AND buyer_id = ? FOR UPDATE`)).
		WithArgs("s1", 9).
		WillReturnRows(sqlmock.NewRows(saleCols).AddRow("s1", 9, 3, status, 2400, ticket, now, now))
	mock.ExpectQuery(q(`WHERE ss.sale_id = ?`)).
		WithArgs("s1").
		WillReturnRows(seatCols().AddRow("s1", 3, 4, 0, 3, "A4"))
}

func TestMarkPaidTx(t *testing.T) {
	_, mock, tx := beginTx(t)
	repo := NewSaleRepo(mysqlDialect)
	later := now.Add(time.Minute)

	expectSale(mock, "PENDING_PAYMENT", nil)
	mock.ExpectExec(q(`UPDATE sales SET status = ?, ticket_code = ?, updated_at = ? WHERE id = ?`)).
		WithArgs("PAID", "TKT-ABCDEF0123", later, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s, err := repo.MarkPaidTx(context.Background(), tx, "s1", 9, "TKT-ABCDEF0123", later)
	require.NoError(t, err)
	assert.Equal(t, model.SalePaid, s.Status)
	assert.Equal(t, "TKT-ABCDEF0123", s.TicketCode)

	// paying again keeps the first code and writes nothing
	expectSale(mock, "PAID", "TKT-ABCDEF0123")
	s, err = repo.MarkPaidTx(context.Background(), tx, "s1", 9, "TKT-9999999999", later)
	require.NoError(t, err)
	assert.Equal(t, "TKT-ABCDEF0123", s.TicketCode)

	expectSale(mock, "CANCELED", nil)
	_, err = repo.MarkPaidTx(context.Background(), tx, "s1", 9, "TKT-9999999999", later)
	assert.ErrorIs(t, err, reservation.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTx(t *testing.T) {
	_, mock, tx := beginTx(t)
	repo := NewSaleRepo(mysqlDialect)

	expectSale(mock, "PAID", "TKT-ABCDEF0123")
	_, err := repo.CancelTx(context.Background(), tx, "s1", 9, now)
	assert.ErrorIs(t, err, reservation.ErrInvalidState)

	expectSale(mock, "PENDING_PAYMENT", nil)
	mock.ExpectExec(q(`DELETE FROM sale_seats WHERE sale_id = ?`)).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`UPDATE sales SET status = ?, updated_at = ? WHERE id = ?`)).
		WithArgs("CANCELED", now, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s, err := repo.CancelTx(context.Background(), tx, "s1", 9, now)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCanceled, s.Status)
	assert.Empty(t, s.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForBuyerTx(t *testing.T) {
	_, mock, tx := beginTx(t)
	repo := NewSaleRepo(mysqlDialect)

	mock.ExpectQuery(q(`FROM sales WHERE buyer_id = ? ORDER BY created_at DESC, seq DESC`)).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(saleCols).
			AddRow("s2", 9, 3, "PAID", 1200, "TKT-ABCDEF0123", now.Add(time.Minute), now.Add(time.Minute)).
			AddRow("s1", 9, 3, "CANCELED", 1200, nil, now, now))
	mock.ExpectQuery(q(`WHERE sa.buyer_id = ?`)).
		WithArgs(9).
		WillReturnRows(seatCols().AddRow("s2", 3, 6, 1, 0, "B1"))

	sales, err := repo.ListForBuyerTx(context.Background(), tx, 9)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "s2", sales[0].ID)
	assert.Equal(t, []string{"B1"}, sales[0].SeatLabels())
	assert.Equal(t, model.SaleCanceled, sales[1].Status)
	assert.Empty(t, sales[1].Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreAtomically(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db, mysqlDialect)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT seat_id, sale_id FROM sale_seats WHERE occurrence_id = ?`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id", "sale_id"}).AddRow(4, "s1"))
	mock.ExpectCommit()
	err = store.Atomically(ctx, func(ctx context.Context, tx reservation.Tx) error {
		sold, err := tx.Sales().SoldSeats(ctx, 3)
		assert.Equal(t, map[uint64]string{4: "s1"}, sold)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = store.Atomically(ctx, func(ctx context.Context, tx reservation.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewOccurrenceRepo(db, mysqlDialect)

	mock.ExpectQuery(q(`FROM occurrences WHERE id = ?`)).
		WithArgs(77).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hall_id", "title", "starts_at", "price_cents", "created_at"}))
	_, err = repo.GetByID(context.Background(), 77)
	assert.ErrorIs(t, err, reservation.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHallCreateGeneratesGrid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewHallRepo(db, mysqlDialect)

	mock.ExpectBegin()
	mock.ExpectExec(q(`INSERT INTO halls (name, seat_rows, seat_cols, created_at)`)).
		WithArgs("Small", 2, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	prep := mock.ExpectPrepare(q(`INSERT INTO seats (hall_id, seat_row, seat_col, label)`))
	for _, s := range []struct {
		row, col int
		label    string
	}{{0, 0, "A1"}, {0, 1, "A2"}, {1, 0, "B1"}, {1, 1, "B2"}} {
		prep.ExpectExec().WithArgs(5, s.row, s.col, s.label).WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	h, err := repo.Create(context.Background(), "Small", 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, h.ID)

	_, err = repo.Create(context.Background(), "Empty", 0, 3)
	assert.ErrorIs(t, err, ErrInvalidLayout)
	assert.NoError(t, mock.ExpectationsWereMet())
}
