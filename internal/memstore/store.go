// Package memstore is a process-local implementation of the reservation
// store.  A single mutex makes every transaction the only writer; map keys
// play the part of the SQL unique indexes and an undo log discards the
// writes of a failed transaction.
package memstore

import (
	"context"
	"sync"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

type seatKey struct {
	occurrence uint64
	seat       uint64
}

// Store keeps catalog and ledger state in memory.  The zero value is not
// usable; call New.
type Store struct {
	catMu       sync.RWMutex
	nextID      uint64
	halls       map[uint64]model.Hall
	seats       map[uint64]model.Seat
	hallSeats   map[uint64][]uint64
	occurrences map[uint64]model.Occurrence

	mu     sync.Mutex
	seq    uint64
	groups map[string]*model.HoldGroup
	holds  map[seatKey]model.SeatHold
	sales  map[string]*saleRow
	soldTo map[seatKey]string
}

type saleRow struct {
	sale model.Sale
	seq  uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		halls:       make(map[uint64]model.Hall),
		seats:       make(map[uint64]model.Seat),
		hallSeats:   make(map[uint64][]uint64),
		occurrences: make(map[uint64]model.Occurrence),
		groups:      make(map[string]*model.HoldGroup),
		holds:       make(map[seatKey]model.SeatHold),
		sales:       make(map[string]*saleRow),
		soldTo:      make(map[seatKey]string),
	}
}

var _ reservation.Store = (*Store)(nil)

// Catalog returns the store itself; catalog reads do not take the ledger
// lock.
func (s *Store) Catalog() reservation.Catalog { return s }

// Atomically runs fn as the only writer.  If fn fails or panics every
// ledger change it made is undone.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx reservation.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
	}()
	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// tx records an undo entry for each ledger mutation.
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) Catalog() reservation.Catalog { return t.s }
func (t *tx) Holds() reservation.HoldLedger { return holdLedger{t} }
func (t *tx) Sales() reservation.SaleLedger { return saleLedger{t} }

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) putHold(h model.SeatHold) {
	k := seatKey{h.OccurrenceID, h.SeatID}
	t.s.holds[k] = h
	t.undo = append(t.undo, func() { delete(t.s.holds, k) })
}

func (t *tx) deleteHold(k seatKey) {
	prev, ok := t.s.holds[k]
	if !ok {
		return
	}
	delete(t.s.holds, k)
	t.undo = append(t.undo, func() { t.s.holds[k] = prev })
}

func (t *tx) putGroup(g *model.HoldGroup) {
	t.s.groups[g.Token] = g
	t.undo = append(t.undo, func() { delete(t.s.groups, g.Token) })
}

func (t *tx) deleteGroup(token string) {
	prev, ok := t.s.groups[token]
	if !ok {
		return
	}
	delete(t.s.groups, token)
	t.undo = append(t.undo, func() { t.s.groups[token] = prev })
}

func (t *tx) putSold(k seatKey, saleID string) {
	t.s.soldTo[k] = saleID
	t.undo = append(t.undo, func() { delete(t.s.soldTo, k) })
}

func (t *tx) deleteSold(k seatKey) {
	prev, ok := t.s.soldTo[k]
	if !ok {
		return
	}
	delete(t.s.soldTo, k)
	t.undo = append(t.undo, func() { t.s.soldTo[k] = prev })
}

// putSale installs row under its id.  Updates must pass a fresh row so the
// previous one can be restored untouched.
func (t *tx) putSale(row *saleRow) {
	id := row.sale.ID
	prev, existed := t.s.sales[id]
	t.s.sales[id] = row
	t.undo = append(t.undo, func() {
		if existed {
			t.s.sales[id] = prev
			return
		}
		delete(t.s.sales, id)
	})
}
