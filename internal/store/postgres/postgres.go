// Package postgres provides the PostgreSQL-backed [store.Store]
// implementation.
//
// Request sections and submission documents are persisted as JSONB so the
// schema does not have to track the generation backend's wire format.
// [Migrate] is idempotent and runs on every call to [New].
//
// Usage:
//
//	st, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hipnotiq/revisor/internal/store"
	"github.com/hipnotiq/revisor/pkg/retry"
	"github.com/hipnotiq/revisor/pkg/script"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is the PostgreSQL-backed store. It holds a single [pgxpool.Pool].
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, verifies connectivity, and runs [Migrate] to ensure all
// required tables exist.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
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

// SaveRequest implements [store.Store]. The snapshot for req.ID is inserted
// or fully replaced.
func (s *Store) SaveRequest(ctx context.Context, req store.Request) error {
	sections, err := json.Marshal(req.Sections)
	if err != nil {
		return fmt.Errorf("postgres store: marshal sections: %w", err)
	}

	const q = `
		INSERT INTO audio_requests (id, title, status, sections, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
		    title      = EXCLUDED.title,
		    status     = EXCLUDED.status,
		    sections   = EXCLUDED.sections,
		    fetched_at = EXCLUDED.fetched_at`

	if _, err := s.pool.Exec(ctx, q, req.ID, req.Title, req.Status, sections, req.FetchedAt); err != nil {
		return fmt.Errorf("postgres store: save request: %w", err)
	}
	return nil
}

// GetRequest implements [store.Store].
func (s *Store) GetRequest(ctx context.Context, id string) (store.Request, error) {
	const q = `
		SELECT id, title, status, sections, fetched_at
		FROM   audio_requests
		WHERE  id = $1`

	var (
		req      store.Request
		sections []byte
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(&req.ID, &req.Title, &req.Status, &sections, &req.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Request{}, store.ErrNotFound
	}
	if err != nil {
		return store.Request{}, fmt.Errorf("postgres store: get request: %w", err)
	}

	if err := json.Unmarshal(sections, &req.Sections); err != nil {
		return store.Request{}, fmt.Errorf("postgres store: unmarshal sections: %w", err)
	}
	if req.Sections == nil {
		req.Sections = []script.Section{}
	}
	return req, nil
}

// RecordSubmission implements [store.Store].
func (s *Store) RecordSubmission(ctx context.Context, sub store.Submission) error {
	doc, err := json.Marshal(sub.Document)
	if err != nil {
		return fmt.Errorf("postgres store: marshal document: %w", err)
	}

	const q = `
		INSERT INTO submissions (id, request_id, session_id, document, submitted_at, accepted, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := s.pool.Exec(ctx, q, sub.ID, sub.RequestID, sub.SessionID, doc, sub.SubmittedAt, sub.Accepted, sub.Detail); err != nil {
		return fmt.Errorf("postgres store: record submission: %w", err)
	}
	return nil
}

// Submissions implements [store.Store]. Results are ordered newest first.
func (s *Store) Submissions(ctx context.Context, requestID string, limit int) ([]store.Submission, error) {
	q := `
		SELECT id, request_id, session_id, document, submitted_at, accepted, detail
		FROM   submissions
		WHERE  request_id = $1
		ORDER  BY submitted_at DESC`

	args := []any{requestID}
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: submissions: %w", err)
	}
	return collectSubmissions(rows)
}

// Ping implements [store.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// collectSubmissions scans pgx rows into a slice of Submission values.
func collectSubmissions(rows pgx.Rows) ([]store.Submission, error) {
	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Submission, error) {
		var (
			sub store.Submission
			doc []byte
		)
		if err := row.Scan(&sub.ID, &sub.RequestID, &sub.SessionID, &doc, &sub.SubmittedAt, &sub.Accepted, &sub.Detail); err != nil {
			return store.Submission{}, err
		}
		if err := json.Unmarshal(doc, &sub.Document); err != nil {
			return store.Submission{}, err
		}
		if sub.Document.Sections == nil {
			sub.Document.Sections = []retry.SectionRetry{}
		}
		return sub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if subs == nil {
		subs = []store.Submission{}
	}
	return subs, nil
}
