package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Config names a database server and the credentials used to reach it.
type Config struct {
	Driver string // "mysql" or "postgres"
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
}

// DSN builds the driver specific connection string.
func (c Config) DSN() string {
	if c.Driver == Postgres {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&timezone=UTC",
			c.User, c.Pass, c.Host, c.Port, c.Name)
	}
	auth := c.User
	if c.Pass != "" {
		auth = fmt.Sprintf("%s:%s", c.User, c.Pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.Host, c.Port, c.Name)
}

// Open connects to the configured server and verifies the connection.
func Open(cfg Config) (*sql.DB, Dialect, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	db, err := sql.Open(d.Name, cfg.DSN())
	if err != nil {
		return nil, Dialect{}, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, err
	}
	return db, d, nil
}
