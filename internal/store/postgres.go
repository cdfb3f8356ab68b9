package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/OpenFogStack/celestial/internal/errs"
)

// PostgresDB wraps a connection pool sized the way the teacher's
// internal/platform/db/postgres.go configures one.
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB opens and pings a connection pool for cfg.
func NewPostgresDB(ctx context.Context, cfg Config) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "open postgres connection", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, errs.Wrap(errs.Configuration, "ping postgres", err)
	}

	return &PostgresDB{db: db}, nil
}

// Close releases the connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Run is one row of the run catalog.
type Run struct {
	ID            int64
	ConfigHash    string
	ShellCount    int
	SatelliteSum  int
	GroundStCount int
	StartedAt     time.Time
	EndedAt       sql.NullTime
	TicksWritten  int
}

// CreateRunsTable creates the run catalog table if absent.
func (p *PostgresDB) CreateRunsTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
	id              BIGSERIAL PRIMARY KEY,
	config_hash     TEXT NOT NULL,
	shell_count     INTEGER NOT NULL,
	satellite_sum   INTEGER NOT NULL,
	ground_st_count INTEGER NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	ended_at        TIMESTAMPTZ,
	ticks_written   INTEGER NOT NULL DEFAULT 0
)`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return errs.Wrap(errs.Configuration, "create runs table", err)
	}
	return nil
}

// InsertRun records the start of a run and returns its catalog id.
func (p *PostgresDB) InsertRun(ctx context.Context, r Run) (int64, error) {
	const q = `
INSERT INTO runs (config_hash, shell_count, satellite_sum, ground_st_count, started_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	var id int64
	err := p.db.QueryRowContext(ctx, q, r.ConfigHash, r.ShellCount, r.SatelliteSum, r.GroundStCount, r.StartedAt).Scan(&id)
	if err != nil {
		return 0, errs.Wrap(errs.Configuration, "insert run", err)
	}
	return id, nil
}

// CompleteRun records a run's end time and final tick count.
func (p *PostgresDB) CompleteRun(ctx context.Context, id int64, endedAt time.Time, ticksWritten int) error {
	const q = `UPDATE runs SET ended_at = $2, ticks_written = $3 WHERE id = $1`
	if _, err := p.db.ExecContext(ctx, q, id, endedAt, ticksWritten); err != nil {
		return errs.Wrap(errs.Configuration, "complete run", err)
	}
	return nil
}
