package model

import "strconv"

// Seat is a single position inside a hall.  Row and Col are zero-based;
// Label is the human readable form shown to buyers (A1, B12, AA3).
//
// Fields:
//  ID     – primary key identifier.
//  HallID – hall that owns the seat.
//  Row    – zero-based row index.
//  Col    – zero-based column index.
//  Label  – display label derived from row and column.
type Seat struct {
	ID     uint64 // seats.id
	HallID uint64 // seats.hall_id
	Row    int    // seats.seat_row
	Col    int    // seats.seat_col
	Label  string // seats.label
}

// SeatLabel builds the display label for a zero-based row and column.
// Rows are lettered A..Z, then AA, AB and so on; columns start at 1.
func SeatLabel(row, col int) string {
	return RowLabel(row) + strconv.Itoa(col+1)
}

// RowLabel converts a zero-based row index to its alphabetical label.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []byte
	for {
		res = append(res, byte('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}
