package memstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/reservation"
)

// CreateHall stores a hall and generates its rows x cols seat grid.
func (s *Store) CreateHall(ctx context.Context, name string, rows, cols int) (*model.Hall, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.New("rows and cols must be positive")
	}
	s.catMu.Lock()
	defer s.catMu.Unlock()

	s.nextID++
	h := model.Hall{ID: s.nextID, Name: name, Rows: rows, Cols: cols, CreatedAt: time.Now().UTC()}
	s.halls[h.ID] = h
	ids := make([]uint64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s.nextID++
			s.seats[s.nextID] = model.Seat{ID: s.nextID, HallID: h.ID, Row: r, Col: c, Label: model.SeatLabel(r, c)}
			ids = append(ids, s.nextID)
		}
	}
	s.hallSeats[h.ID] = ids
	return &h, nil
}

// CreateOccurrence stores o and fills in its ID and CreatedAt.  The hall must
// exist.
func (s *Store) CreateOccurrence(ctx context.Context, o *model.Occurrence) error {
	s.catMu.Lock()
	defer s.catMu.Unlock()
	if _, ok := s.halls[o.HallID]; !ok {
		return reservation.ErrNotFound
	}
	s.nextID++
	o.ID = s.nextID
	o.CreatedAt = time.Now().UTC()
	o.StartsAt = o.StartsAt.UTC()
	s.occurrences[o.ID] = *o
	return nil
}

// Hall returns a hall by id.
func (s *Store) Hall(ctx context.Context, id uint64) (*model.Hall, error) {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	h, ok := s.halls[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return &h, nil
}

func (s *Store) Occurrence(ctx context.Context, id uint64) (*model.Occurrence, error) {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	o, ok := s.occurrences[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return &o, nil
}

func (s *Store) HallSeats(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	if _, ok := s.halls[hallID]; !ok {
		return nil, reservation.ErrNotFound
	}
	out := make([]model.Seat, 0, len(s.hallSeats[hallID]))
	for _, id := range s.hallSeats[hallID] {
		out = append(out, s.seats[id])
	}
	sortSeats(out)
	return out, nil
}

// seat looks up a single seat of any hall.
func (s *Store) seat(id uint64) (model.Seat, bool) {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	st, ok := s.seats[id]
	return st, ok
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Col < seats[j].Col
	})
}
