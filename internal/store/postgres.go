package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/psantana5/exectime/internal/retry"
)

// PostgreSQLStore keeps results in a shared PostgreSQL database.
type PostgreSQLStore struct {
	sqlStore
}

// NewPostgreSQLStore connects using config.DSN, retrying the first ping.
func NewPostgreSQLStore(ctx context.Context, config Config) (*PostgreSQLStore, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(orDefault(config.MaxOpenConns, 25))
	db.SetMaxIdleConns(orDefault(config.MaxIdleConns, 5))
	db.SetConnMaxLifetime(orDefault(config.ConnMaxLifetime, 5*time.Minute))
	db.SetConnMaxIdleTime(orDefault(config.ConnMaxIdleTime, time.Minute))

	retryCfg := config.Retry
	if retryCfg.InitialBackoff == 0 {
		retryCfg = retry.DefaultConfig()
	}
	if err := retry.Do(ctx, retryCfg, func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgreSQLStore{sqlStore{db: db, placeholder: dollar}}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgreSQLStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS timing_results (
		id UUID PRIMARY KEY,
		label TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_ns BIGINT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL,
		error TEXT,
		canceled BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_timing_results_label ON timing_results(label, completed_at);
	CREATE INDEX IF NOT EXISTS idx_timing_results_completed ON timing_results(completed_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
