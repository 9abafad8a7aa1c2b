package model

import "time"

// HoldGroup is the set of seats one buyer holds together under a single
// opaque token.  All member holds share the group's expiry.
//
// Fields:
//  Token        – opaque identifier returned to the buyer.
//  BuyerID      – buyer who created the hold.
//  OccurrenceID – occurrence the seats belong to.
//  SeatIDs      – member seats, ascending.
//  ExpiresAt    – instant at which the hold stops being live.
//  CreatedAt    – creation timestamp.
type HoldGroup struct {
	Token        string    // hold_groups.token
	BuyerID      uint64    // hold_groups.buyer_id
	OccurrenceID uint64    // hold_groups.occurrence_id
	SeatIDs      []uint64  // seat_holds.seat_id
	ExpiresAt    time.Time // hold_groups.expires_at
	CreatedAt    time.Time // hold_groups.created_at
}

// Expired reports whether the group is no longer live at now.  A hold whose
// expiry equals now is already expired.
func (g *HoldGroup) Expired(now time.Time) bool {
	return !g.ExpiresAt.After(now)
}

// SeatHold is one seat inside a HoldGroup.  At most one SeatHold may exist
// per (occurrence, seat) at any time.
//
// Fields:
//  HoldToken    – owning group token.
//  OccurrenceID – occurrence of the held seat.
//  SeatID       – held seat.
//  BuyerID      – copy of the group's buyer.
//  ExpiresAt    – copy of the group's expiry.
type SeatHold struct {
	HoldToken    string    // seat_holds.hold_token
	OccurrenceID uint64    // seat_holds.occurrence_id
	SeatID       uint64    // seat_holds.seat_id
	BuyerID      uint64    // seat_holds.buyer_id
	ExpiresAt    time.Time // seat_holds.expires_at
}
