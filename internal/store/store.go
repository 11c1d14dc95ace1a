package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the session tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS analysis_sessions (
			id         UUID PRIMARY KEY,
			transcript TEXT NOT NULL,
			displayed  TEXT NOT NULL DEFAULT '',
			sequencing BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS agent_runs (
			session_id UUID NOT NULL REFERENCES analysis_sessions(id) ON DELETE CASCADE,
			agent_id   TEXT NOT NULL,
			status     TEXT NOT NULL,
			progress   INT NOT NULL DEFAULT 0,
			result     JSONB,
			error      TEXT NOT NULL DEFAULT '',
			retries    INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (session_id, agent_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_runs_session ON agent_runs(session_id)`,
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
