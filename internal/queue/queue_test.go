package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-reservation/internal/model"
)

func paidSale() (*model.Sale, *model.Occurrence) {
	at := time.Date(2026, 2, 3, 18, 30, 0, 0, time.UTC)
	sale := &model.Sale{
		ID:           "s-1",
		BuyerID:      101,
		OccurrenceID: 9,
		Status:       model.SalePaid,
		TotalCents:   2400,
		TicketCode:   "TKT-ABCDEF0123",
		Seats: []model.SaleSeat{
			{SeatID: 2, Row: 0, Col: 1, Label: "A2"},
			{SeatID: 3, Row: 0, Col: 2, Label: "A3"},
		},
		UpdatedAt: at,
	}
	occ := &model.Occurrence{ID: 9, Title: "Opening Night", StartsAt: at.Add(2 * time.Hour)}
	return sale, occ
}

func TestNewSalePaidEvent(t *testing.T) {
	sale, occ := paidSale()
	ev := NewSalePaidEvent(sale, occ)
	assert.Equal(t, "s-1", ev.SaleID)
	assert.Equal(t, []string{"A2", "A3"}, ev.Seats)
	assert.Equal(t, "Opening Night", ev.Title)
	assert.Equal(t, "2026-02-03T20:30:00Z", ev.StartsAt)
	assert.Equal(t, "2026-02-03T18:30:00Z", ev.PaidAt)

	bare := NewSalePaidEvent(sale, nil)
	assert.Empty(t, bare.Title)
}

func TestHandleMessageAppends(t *testing.T) {
	sale, occ := paidSale()
	body, err := json.Marshal(NewSalePaidEvent(sale, occ))
	require.NoError(t, err)

	c := &Consumer{Dir: filepath.Join(t.TempDir(), "logs")}
	require.NoError(t, c.handleMessage(body))
	require.NoError(t, c.handleMessage(body))

	data, err := os.ReadFile(filepath.Join(c.Dir, "sales.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `[2026-02-03T18:30:00Z] Sale paid | sale_id=s-1 | buyer_id=101 | occurrence_id=9 | title="Opening Night" | starts_at=2026-02-03T20:30:00Z | ticket=TKT-ABCDEF0123 | total=2400 cents | seats=[A2,A3]`, lines[0])
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	c := &Consumer{Dir: t.TempDir()}
	assert.Error(t, c.handleMessage([]byte("{")))
	assert.Error(t, c.handleMessage([]byte(`{"buyer_id":1}`)))
}
