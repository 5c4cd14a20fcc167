// Package store defines the persistence contract for Revisor: cached audio
// request snapshots and an audit log of reprocess submissions.
//
// Two implementations exist: [Memory] for tests and single-node deployments
// without a database, and the PostgreSQL implementation in the postgres
// subpackage for everything else.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hipnotiq/revisor/pkg/retry"
	"github.com/hipnotiq/revisor/pkg/script"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Request is a snapshot of an audio request as fetched from the generation
// backend, persisted so review sessions survive restarts and so the backend
// does not have to be hit on every session open.
type Request struct {
	ID        string
	Title     string
	Status    string
	Sections  []script.Section
	FetchedAt time.Time
}

// Submission is one reprocess document sent to the generation backend,
// recorded whether or not the backend accepted it.
type Submission struct {
	ID          string
	RequestID   string
	SessionID   string
	Document    retry.Document
	SubmittedAt time.Time
	Accepted    bool
	// Detail carries the backend's error body verbatim when Accepted is false.
	Detail string
}

// Store persists request snapshots and submission records.
// All implementations must be safe for concurrent use.
type Store interface {
	// SaveRequest inserts or replaces the snapshot for req.ID.
	SaveRequest(ctx context.Context, req Request) error

	// GetRequest returns the snapshot for id, or [ErrNotFound].
	GetRequest(ctx context.Context, id string) (Request, error)

	// RecordSubmission appends sub to the audit log.
	RecordSubmission(ctx context.Context, sub Submission) error

	// Submissions returns the submissions for requestID, newest first,
	// at most limit entries (limit <= 0 means no limit).
	Submissions(ctx context.Context, requestID string, limit int) ([]Submission, error)

	// Ping reports whether the store's backing service is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close()
}
