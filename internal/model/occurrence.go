package model

import "time"

// Occurrence is a single time-boxed event in a hall that seats are sold for
// (one screening, one performance).  PriceCents is the flat per-seat price
// captured when the occurrence was created; sales snapshot it again.
//
// Fields:
//  ID         – primary key identifier.
//  HallID     – hall in which the occurrence takes place.
//  Title      – display title.
//  StartsAt   – start time (UTC).
//  PriceCents – per-seat price in cents.
//  CreatedAt  – creation timestamp.
type Occurrence struct {
	ID         uint64    // occurrences.id
	HallID     uint64    // occurrences.hall_id
	Title      string    // occurrences.title
	StartsAt   time.Time // occurrences.starts_at
	PriceCents int64     // occurrences.price_cents
	CreatedAt  time.Time // occurrences.created_at
}
