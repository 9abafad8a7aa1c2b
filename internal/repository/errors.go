// Package repository implements the reservation store on top of
// database/sql.  Lookups that find nothing return reservation.ErrNotFound;
// unique key violations are translated into reservation seat errors so the
// engine never sees driver specific codes.
package repository

import "errors"

// ErrInvalidLayout is returned when a hall is created with a non-positive
// number of rows or columns.  OperatorHandler rejects such layouts before
// they reach the repository.
var ErrInvalidLayout = errors.New("rows and cols must be positive")
