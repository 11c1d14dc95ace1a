package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/prospect/internal/session"
)

// Save upserts the session row and every agent run, and removes runs that no
// longer exist on the session (a reset). One transaction, so a reload always
// sees a consistent snapshot.
func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_sessions (id, transcript, displayed, sequencing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE
		SET displayed = EXCLUDED.displayed, sequencing = EXCLUDED.sequencing, updated_at = now()`,
		sess.ID, sess.Transcript, sess.Displayed, sess.Sequencing, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	kept := make([]string, 0, len(sess.Runs))
	for agentID, run := range sess.Runs {
		kept = append(kept, agentID)

		var result any
		if run.Result != nil {
			result = []byte(run.Result)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO agent_runs (session_id, agent_id, status, progress, result, error, retries, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (session_id, agent_id) DO UPDATE
			SET status = EXCLUDED.status, progress = EXCLUDED.progress, result = EXCLUDED.result,
			    error = EXCLUDED.error, retries = EXCLUDED.retries, updated_at = EXCLUDED.updated_at`,
			sess.ID, agentID, string(run.Status), run.Progress, result, run.Error, run.Retries, run.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert run %s: %w", agentID, err)
		}
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM agent_runs WHERE session_id = $1 AND agent_id != ALL($2)`,
		sess.ID, kept,
	)
	if err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads a session and its agent runs.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	sess := &session.Session{ID: id, Runs: make(map[string]*session.AgentRun)}

	err := s.pool.QueryRow(ctx, `
		SELECT transcript, displayed, sequencing, created_at
		FROM analysis_sessions WHERE id = $1`,
		id,
	).Scan(&sess.Transcript, &sess.Displayed, &sess.Sequencing, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT agent_id, status, progress, result, error, retries, updated_at
		FROM agent_runs WHERE session_id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			run       session.AgentRun
			status    string
			result    []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&run.AgentID, &status, &run.Progress, &result, &run.Error, &run.Retries, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = session.Status(status)
		run.UpdatedAt = updatedAt
		if result != nil {
			run.Result = json.RawMessage(result)
		}
		sess.Runs[run.AgentID] = &run
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return sess, nil
}

// Delete destroys a session and its runs.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analysis_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// ListRecent returns the newest session ids, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM analysis_sessions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
