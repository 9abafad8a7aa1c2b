package database

import (
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT id FROM seats WHERE hall_id = ? AND id IN (?,?)"
	assert.Equal(t, q, Dialect{Name: MySQL}.Rebind(q))
	assert.Equal(t, "SELECT id FROM seats WHERE hall_id = $1 AND id IN ($2,$3)", Dialect{Name: Postgres}.Rebind(q))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?,?,?", Placeholders(3))
}

func TestIsDuplicateKey(t *testing.T) {
	d := Dialect{Name: MySQL}
	assert.True(t, d.IsDuplicateKey(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, d.IsDuplicateKey(&mysql.MySQLError{Number: 1213}))
	assert.True(t, d.IsDuplicateKey(&pq.Error{Code: "23505"}))
	assert.False(t, d.IsDuplicateKey(&pq.Error{Code: "40001"}))
	assert.False(t, d.IsDuplicateKey(fmt.Errorf("boom")))
}

func TestIsRetryable(t *testing.T) {
	d := Dialect{Name: MySQL}
	assert.True(t, d.IsRetryable(fmt.Errorf("insert seat hold 4: %w", &mysql.MySQLError{Number: 1213})))
	assert.False(t, d.IsRetryable(&mysql.MySQLError{Number: 1062}))
	assert.True(t, d.IsRetryable(&pq.Error{Code: "40P01"}))
	assert.True(t, d.IsRetryable(&pq.Error{Code: "40001"}))
	assert.False(t, d.IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, d.IsRetryable(fmt.Errorf("boom")))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("")
	require.NoError(t, err)
	assert.Equal(t, MySQL, d.Name)
	d, err = DialectFor("postgresql")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d.Name)
	_, err = DialectFor("sqlite")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	my := Config{Driver: MySQL, User: "app", Host: "db", Port: "3306", Name: "seats"}
	assert.Equal(t, "app@tcp(db:3306)/seats?charset=utf8mb4&parseTime=true&loc=UTC", my.DSN())
	pg := Config{Driver: Postgres, User: "app", Pass: "pw", Host: "db", Port: "5432", Name: "seats"}
	assert.Equal(t, "postgres://app:pw@db:5432/seats?sslmode=disable&timezone=UTC", pg.DSN())
}

func TestSchemaStatements(t *testing.T) {
	for _, name := range []string{MySQL, Postgres} {
		stmts, err := Dialect{Name: name}.Statements()
		require.NoError(t, err)
		joined := fmt.Sprint(stmts)
		assert.Contains(t, joined, "uq_hold_seat_once", name)
		assert.Contains(t, joined, "uq_sold_seat_once", name)
		assert.Contains(t, joined, "(buyer_id, created_at, seq)", name)
		for _, s := range stmts {
			assert.NotContains(t, s, ";")
		}
	}
}
