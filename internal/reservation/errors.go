package reservation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors returned by the engine and the ledgers.  Handlers map
// them to HTTP statuses with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrNotOwner        = errors.New("not owner")
	ErrSeatInvalid     = errors.New("seat does not belong to occurrence")
	ErrSeatAlreadyHeld = errors.New("seat already held")
	ErrSeatAlreadySold = errors.New("seat already sold")
	ErrHoldExpired     = errors.New("hold expired")
	ErrInvalidState    = errors.New("invalid state")
	ErrEmptySelection  = errors.New("empty seat selection")
)

// SeatError carries the seats that caused a SeatInvalid, SeatAlreadyHeld or
// SeatAlreadySold failure.  It unwraps to Kind.
type SeatError struct {
	Kind    error
	SeatIDs []uint64
}

// NewSeatError builds a SeatError with a sorted copy of ids.
func NewSeatError(kind error, ids ...uint64) *SeatError {
	cp := append([]uint64(nil), ids...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	return &SeatError{Kind: kind, SeatIDs: cp}
}

func (e *SeatError) Error() string {
	parts := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%v: [%s]", e.Kind, strings.Join(parts, ","))
}

func (e *SeatError) Unwrap() error { return e.Kind }

// ConflictingSeats extracts the seat ids attached to err, if any.
func ConflictingSeats(err error) []uint64 {
	var se *SeatError
	if errors.As(err, &se) {
		return se.SeatIDs
	}
	return nil
}
