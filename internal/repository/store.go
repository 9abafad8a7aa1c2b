package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/seat-reservation/internal/database"
	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// Catalog groups the hall, seat and occurrence repositories behind the
// engine's catalog interface and the operator setup calls.
type Catalog struct {
	Halls       *HallRepo
	Seats       *SeatRepo
	Occurrences *OccurrenceRepo
}

func (c *Catalog) Occurrence(ctx context.Context, id uint64) (*model.Occurrence, error) {
	return c.Occurrences.GetByID(ctx, id)
}

func (c *Catalog) HallSeats(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	return c.Seats.ListByHall(ctx, hallID)
}

func (c *Catalog) Hall(ctx context.Context, id uint64) (*model.Hall, error) {
	return c.Halls.GetByID(ctx, id)
}

func (c *Catalog) CreateHall(ctx context.Context, name string, rows, cols int) (*model.Hall, error) {
	return c.Halls.Create(ctx, name, rows, cols)
}

func (c *Catalog) CreateOccurrence(ctx context.Context, o *model.Occurrence) error {
	return c.Occurrences.Create(ctx, o)
}

// maxAttempts bounds how often Atomically reruns a transaction that lost a
// deadlock.
const maxAttempts = 3

// txOptions runs ledger transactions at READ COMMITTED.  At MySQL's
// REPEATABLE READ the range DELETE of the expiry sweep takes gap locks on
// uq_hold_seat_once that block concurrent hold inserts.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// Store is the SQL backed reservation store.  Each Atomically call is one
// READ COMMITTED database transaction.
type Store struct {
	db      *sql.DB
	d       database.Dialect
	holds   *SeatHoldRepo
	sales   *SaleRepo
	catalog *Catalog
}

// NewStore wires all repositories to db.
func NewStore(db *sql.DB, d database.Dialect) *Store {
	return &Store{
		db:    db,
		d:     d,
		holds: NewSeatHoldRepo(d),
		sales: NewSaleRepo(d),
		catalog: &Catalog{
			Halls:       NewHallRepo(db, d),
			Seats:       NewSeatRepo(db, d),
			Occurrences: NewOccurrenceRepo(db, d),
		},
	}
}

var _ reservation.Store = (*Store)(nil)

// Catalog reads through the pool.  Inside Atomically use Tx.Catalog, which
// stays on the transaction's connection.
func (s *Store) Catalog() reservation.Catalog { return s.catalog }

// Setup exposes the operator side of the catalog.
func (s *Store) Setup() *Catalog { return s.catalog }

// Atomically runs fn inside a transaction and commits when it returns nil.
// A transaction chosen as a deadlock victim is rolled back and fn runs
// again, up to maxAttempts times.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx reservation.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.attempt(ctx, fn)
		if err == nil || !s.d.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		log.Warnf("transaction attempt %d aborted, retrying: %v", attempt, err)
	}
	return err
}

func (s *Store) attempt(ctx context.Context, fn func(ctx context.Context, tx reservation.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, txOptions)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, &sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type sqlTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *sqlTx) Catalog() reservation.Catalog { return txCatalog{c: t.s.catalog, tx: t.tx} }
func (t *sqlTx) Holds() reservation.HoldLedger { return holdLedger{repo: t.s.holds, tx: t.tx} }
func (t *sqlTx) Sales() reservation.SaleLedger { return saleLedger{repo: t.s.sales, tx: t.tx} }

// txCatalog binds the catalog reads to one transaction.
type txCatalog struct {
	c  *Catalog
	tx *sql.Tx
}

func (c txCatalog) Occurrence(ctx context.Context, id uint64) (*model.Occurrence, error) {
	return c.c.Occurrences.GetByIDTx(ctx, c.tx, id)
}

func (c txCatalog) HallSeats(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	return c.c.Seats.ListByHallTx(ctx, c.tx, hallID)
}

// holdLedger binds SeatHoldRepo to one transaction.
type holdLedger struct {
	repo *SeatHoldRepo
	tx   *sql.Tx
}

func (l holdLedger) CreateHold(ctx context.Context, h reservation.NewHold) (*model.HoldGroup, error) {
	return l.repo.CreateHoldTx(ctx, l.tx, h)
}

func (l holdLedger) Group(ctx context.Context, token string) (*model.HoldGroup, error) {
	return l.repo.GroupTx(ctx, l.tx, token)
}

func (l holdLedger) Release(ctx context.Context, token string, buyerID uint64) error {
	return l.repo.ReleaseTx(ctx, l.tx, token, buyerID)
}

func (l holdLedger) DeleteGroup(ctx context.Context, token string) error {
	return l.repo.DeleteGroupTx(ctx, l.tx, token)
}

func (l holdLedger) SweepExpired(ctx context.Context, occurrenceID uint64, now time.Time) (int, error) {
	return l.repo.SweepExpiredTx(ctx, l.tx, occurrenceID, now)
}

func (l holdLedger) ListLive(ctx context.Context, occurrenceID uint64, now time.Time) (map[uint64]uint64, error) {
	return l.repo.ListLiveTx(ctx, l.tx, occurrenceID, now)
}

// saleLedger binds SaleRepo to one transaction.
type saleLedger struct {
	repo *SaleRepo
	tx   *sql.Tx
}

func (l saleLedger) CreateSale(ctx context.Context, s reservation.NewSale) (*model.Sale, error) {
	return l.repo.CreateTx(ctx, l.tx, s)
}

func (l saleLedger) Get(ctx context.Context, saleID string, buyerID uint64) (*model.Sale, error) {
	return l.repo.GetTx(ctx, l.tx, saleID, buyerID, false)
}

func (l saleLedger) MarkPaid(ctx context.Context, saleID string, buyerID uint64, ticketCode string, now time.Time) (*model.Sale, error) {
	return l.repo.MarkPaidTx(ctx, l.tx, saleID, buyerID, ticketCode, now)
}

func (l saleLedger) Cancel(ctx context.Context, saleID string, buyerID uint64, now time.Time) (*model.Sale, error) {
	return l.repo.CancelTx(ctx, l.tx, saleID, buyerID, now)
}

func (l saleLedger) ListForBuyer(ctx context.Context, buyerID uint64) ([]model.Sale, error) {
	return l.repo.ListForBuyerTx(ctx, l.tx, buyerID)
}

func (l saleLedger) SoldSeats(ctx context.Context, occurrenceID uint64) (map[uint64]string, error) {
	return l.repo.SoldSeatsTx(ctx, l.tx, occurrenceID)
}
