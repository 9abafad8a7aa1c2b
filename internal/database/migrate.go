package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Statements returns the schema of the dialect split into single
// statements, so drivers without multi-statement support can run them.
func (d Dialect) Statements() ([]string, error) {
	raw, err := schemaFS.ReadFile("schema/" + d.Name + ".sql")
	if err != nil {
		return nil, fmt.Errorf("read %s schema: %w", d.Name, err)
	}
	var out []string
	for _, stmt := range strings.Split(string(raw), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Migrate creates any missing tables.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts, err := d.Statements()
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
