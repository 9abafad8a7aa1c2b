package model

// SeatState is the availability of a seat as seen by one viewer.
type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE"
	SeatHeld      SeatState = "HELD"
	SeatHeldByMe  SeatState = "HELD_BY_ME"
	SeatSold      SeatState = "SOLD"
)

// SeatView is one entry of an availability projection.
type SeatView struct {
	SeatID uint64
	Row    int
	Col    int
	Label  string
	State  SeatState
}
