// Package postgres provides a PostgreSQL-backed implementation of
// [sessionstore.Store]. Sessions and results live in two tables; tracking
// state and result payloads are stored as JSONB blobs the database never
// interprets.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oratio-labs/oratio/internal/sessionstore"
)

// Compile-time interface check.
var _ sessionstore.Store = (*Store)(nil)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS reading_sessions (
    id         TEXT        PRIMARY KEY,
    passage    TEXT        NOT NULL,
    grade      INT         NOT NULL DEFAULT 1,
    state      JSONB       NOT NULL DEFAULT 'null',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reading_sessions_created_at
    ON reading_sessions (created_at DESC);

CREATE INDEX IF NOT EXISTS idx_reading_sessions_grade
    ON reading_sessions (grade);`

const ddlResults = `
CREATE TABLE IF NOT EXISTS session_results (
    id          BIGSERIAL   PRIMARY KEY,
    session_id  TEXT        NOT NULL REFERENCES reading_sessions(id) ON DELETE CASCADE,
    kind        TEXT        NOT NULL,
    payload     JSONB       NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_session_results_session_recorded
    ON session_results (session_id, recorded_at);`

// Store is the PostgreSQL-backed session store. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn
// and runs [Migrate] to ensure the required tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate creates the session and result tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{ddlSessions, ddlResults} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// Ping verifies database connectivity, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PutSession implements [sessionstore.Store]. The upsert keeps the original
// created_at on conflict and refreshes updated_at.
func (s *Store) PutSession(ctx context.Context, sess sessionstore.Session) error {
	const q = `
		INSERT INTO reading_sessions (id, passage, grade, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET passage = EXCLUDED.passage,
		    grade   = EXCLUDED.grade,
		    state   = EXCLUDED.state,
		    updated_at = now()`

	state := sess.State
	if len(state) == 0 {
		state = json.RawMessage("null")
	}
	if _, err := s.pool.Exec(ctx, q, sess.ID, sess.Passage, sess.Grade, state); err != nil {
		return fmt.Errorf("session store: put session: %w", err)
	}
	return nil
}

// GetSession implements [sessionstore.Store].
func (s *Store) GetSession(ctx context.Context, id string) (*sessionstore.Session, error) {
	const q = `
		SELECT id, passage, grade, state, created_at, updated_at
		FROM   reading_sessions
		WHERE  id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("session store: get session: %w", err)
	}
	sess, err := pgx.CollectOneRow(rows, scanSession)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session store: scan session: %w", err)
	}
	return &sess, nil
}

// DeleteSession implements [sessionstore.Store]. Results are removed by the
// foreign-key cascade.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM reading_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("session store: delete session: %w", err)
	}
	return nil
}

// ListSessions implements [sessionstore.Store].
func (s *Store) ListSessions(ctx context.Context, opts ...sessionstore.ListOpt) ([]sessionstore.Session, error) {
	o := sessionstore.ApplyListOpts(opts)

	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"TRUE"}
	if o.Grade != 0 {
		conditions = append(conditions, "grade = "+next(o.Grade))
	}
	if !o.CreatedAfter.IsZero() {
		conditions = append(conditions, "created_at > "+next(o.CreatedAfter))
	}

	q := "SELECT id, passage, grade, state, created_at, updated_at\n" +
		"FROM   reading_sessions\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY created_at DESC"

	if o.Limit > 0 {
		args = append(args, o.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("session store: list sessions: %w", err)
	}
	sessions, err := pgx.CollectRows(rows, scanSession)
	if err != nil {
		return nil, fmt.Errorf("session store: scan sessions: %w", err)
	}
	if sessions == nil {
		sessions = []sessionstore.Session{}
	}
	return sessions, nil
}

// AppendResult implements [sessionstore.Store].
func (s *Store) AppendResult(ctx context.Context, r sessionstore.Result) error {
	const q = `
		INSERT INTO session_results (session_id, kind, payload, recorded_at)
		VALUES ($1, $2, $3, $4)`

	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	if _, err := s.pool.Exec(ctx, q, r.SessionID, r.Kind, r.Payload, r.RecordedAt); err != nil {
		return fmt.Errorf("session store: append result: %w", err)
	}
	return nil
}

// Results implements [sessionstore.Store].
func (s *Store) Results(ctx context.Context, sessionID string, limit int) ([]sessionstore.Result, error) {
	q := `
		SELECT session_id, kind, payload, recorded_at
		FROM   session_results
		WHERE  session_id = $1
		ORDER  BY recorded_at`

	args := []any{sessionID}
	if limit > 0 {
		args = append(args, limit)
		q += "\nLIMIT $2"
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("session store: results: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (sessionstore.Result, error) {
		var r sessionstore.Result
		err := row.Scan(&r.SessionID, &r.Kind, &r.Payload, &r.RecordedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("session store: scan results: %w", err)
	}
	if results == nil {
		results = []sessionstore.Result{}
	}
	return results, nil
}

func scanSession(row pgx.CollectableRow) (sessionstore.Session, error) {
	var (
		sess  sessionstore.Session
		state []byte
	)
	if err := row.Scan(&sess.ID, &sess.Passage, &sess.Grade, &state, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return sessionstore.Session{}, err
	}
	if string(state) != "null" {
		sess.State = json.RawMessage(state)
	}
	return sess, nil
}
