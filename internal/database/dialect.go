package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const (
	MySQL    = "mysql"
	Postgres = "postgres"
)

// Dialect hides the few places where MySQL and Postgres differ for the
// repositories: placeholder syntax and duplicate key detection.
type Dialect struct {
	Name string
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case MySQL, "":
		return Dialect{Name: MySQL}, nil
	case Postgres, "postgresql":
		return Dialect{Name: Postgres}, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// Rebind rewrites ? placeholders into $1, $2... for Postgres.  Queries are
// written with ? and never contain a literal question mark.
func (d Dialect) Rebind(q string) string {
	if d.Name != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// Placeholders returns n comma separated ? markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// IsDuplicateKey reports whether err is a unique constraint violation:
// MySQL error 1062 or Postgres SQLSTATE 23505.
func (d Dialect) IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

// IsRetryable reports whether err aborted the transaction in a way that a
// fresh attempt can succeed: MySQL deadlock 1213, Postgres deadlock 40P01
// or serialization failure 40001.
func (d Dialect) IsRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "40P01" || pe.Code == "40001"
	}
	return false
}

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertID runs an INSERT written with ? placeholders and returns the
// generated id column.  Postgres has no LastInsertId so RETURNING is used.
func (d Dialect) InsertID(ctx context.Context, ex Execer, query string, args ...any) (uint64, error) {
	if d.Name == Postgres {
		var id uint64
		err := ex.QueryRowContext(ctx, d.Rebind(query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
