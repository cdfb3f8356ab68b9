// Package store provides a Postgres run catalog: a runs table with one row
// per run recording the configuration hash, shell/satellite counts, and
// run lifecycle timestamps. Neither cmd/satgen nor cmd/replay calls this
// package, so no row is written by either binary.
//
// Grounded on the now-deleted internal/platform/db/config.go's env-var
// loading and dev/prod branching, trimmed to the Postgres fields only.
package store

import (
	"fmt"
	"os"

	"github.com/OpenFogStack/celestial/internal/errs"
)

// Config is the Postgres connection configuration, loaded from environment
// variables the way the teacher's db config loader does.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoadConfig reads the CELESTIAL_DB_* environment variables. In production
// (CELESTIAL_ENV=production) a missing password is a fatal configuration
// error; in development it defaults to empty, matching the teacher's
// dev/prod branching in internal/platform/db/config.go.
func LoadConfig() (Config, error) {
	cfg := Config{
		Host:     envOr("CELESTIAL_DB_HOST", "localhost"),
		Port:     envOr("CELESTIAL_DB_PORT", "5432"),
		User:     envOr("CELESTIAL_DB_USER", "celestial"),
		Password: os.Getenv("CELESTIAL_DB_PASSWORD"),
		Database: envOr("CELESTIAL_DB_NAME", "celestial"),
		SSLMode:  envOr("CELESTIAL_DB_SSLMODE", "disable"),
	}

	if os.Getenv("CELESTIAL_ENV") == "production" && cfg.Password == "" {
		return Config{}, errs.NewConfigError("CELESTIAL_DB_PASSWORD is required in production")
	}

	return cfg, nil
}

// DSN builds a lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
