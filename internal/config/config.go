// Package config loads runtime configuration from environment variables.
// cmd/server optionally populates the environment from a .env file first.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/seat-reservation/internal/database"
)

// Store backends accepted by STORE.
const (
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// DefaultHoldTTL applies when neither HOLD_TTL nor HOLD_MINUTES is set.
const DefaultHoldTTL = 15 * time.Minute

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string        // APP_ENV
	Port      string        // APP_PORT
	Store     string        // STORE: mysql, postgres or memory
	DB        database.Config
	JWTSecret string        // JWT_SECRET
	HoldTTL   time.Duration // HOLD_TTL or HOLD_MINUTES
	AMQPURL   string        // AMQP_URL or RABBITMQ_URL; empty disables events
	LogLevel  log.Lvl       // LOG_LEVEL
}

// Load reads configuration values from environment variables.  Required
// variables are enforced by must(); database variables are only required
// for the SQL stores.
func Load() Config {
	cfg := Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		Store:     strings.ToLower(envStr("STORE", StoreMySQL)),
		JWTSecret: must("JWT_SECRET"),
		HoldTTL:   holdTTL(),
		AMQPURL:   envStr("AMQP_URL", os.Getenv("RABBITMQ_URL")),
		LogLevel:  ParseLevel(envStr("LOG_LEVEL", "info")),
	}
	switch cfg.Store {
	case StoreMySQL, StorePostgres:
		cfg.DB = database.Config{
			Driver: cfg.Store,
			User:   must("DB_USER"),
			Pass:   os.Getenv("DB_PASS"),
			Host:   must("DB_HOST"),
			Port:   must("DB_PORT"),
			Name:   must("DB_NAME"),
		}
	case StoreMemory:
	default:
		log.Fatalf("invalid STORE %q: want mysql, postgres or memory", cfg.Store)
	}
	return cfg
}

// holdTTL prefers HOLD_TTL (a Go duration) over the legacy HOLD_MINUTES.
func holdTTL() time.Duration {
	if v := os.Getenv("HOLD_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Fatalf("invalid duration for HOLD_TTL: %q", v)
		}
		return d
	}
	if os.Getenv("HOLD_MINUTES") != "" {
		return time.Duration(mustInt("HOLD_MINUTES")) * time.Minute
	}
	return DefaultHoldTTL
}

// ParseLevel maps a LOG_LEVEL name onto a gommon level.  Unknown names
// fall back to INFO.
func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}

// must retrieves the value of a required environment variable and exits
// when it is unset or empty.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
