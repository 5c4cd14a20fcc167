package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlAudioRequests = `
CREATE TABLE IF NOT EXISTS audio_requests (
    id          TEXT         PRIMARY KEY,
    title       TEXT         NOT NULL DEFAULT '',
    status      TEXT         NOT NULL DEFAULT '',
    sections    JSONB        NOT NULL DEFAULT '[]',
    fetched_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audio_requests_status
    ON audio_requests (status);
`

const ddlSubmissions = `
CREATE TABLE IF NOT EXISTS submissions (
    id            TEXT         PRIMARY KEY,
    request_id    TEXT         NOT NULL,
    session_id    TEXT         NOT NULL DEFAULT '',
    document      JSONB        NOT NULL DEFAULT '{}',
    submitted_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    accepted      BOOLEAN      NOT NULL DEFAULT false,
    detail        TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_submissions_request_id
    ON submissions (request_id);

CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at
    ON submissions (submitted_at);
`

// Migrate creates or ensures all required tables exist. It is idempotent
// (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS) and safe to call
// on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlAudioRequests,
		ddlSubmissions,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
