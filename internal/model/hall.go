package model

import "time"

// Hall is a physical room with a fixed rectangular seat grid.  Seats are
// generated once when the hall is created and never change afterwards,
// which lets the seat layout be cached aggressively.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the hall.
//  Rows      – number of seat rows in the grid.
//  Cols      – number of seats per row.
//  CreatedAt – creation timestamp.
type Hall struct {
	ID        uint64    // halls.id
	Name      string    // halls.name
	Rows      int       // halls.seat_rows
	Cols      int       // halls.seat_cols
	CreatedAt time.Time // halls.created_at
}
