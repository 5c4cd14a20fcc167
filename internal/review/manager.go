package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hipnotiq/revisor/internal/backend"
	"github.com/hipnotiq/revisor/internal/store"
	"github.com/hipnotiq/revisor/pkg/retry"
	"github.com/hipnotiq/revisor/pkg/script"
)

// Backend is the slice of the generation-backend client the manager needs.
// *backend.Client satisfies it; tests substitute a fake.
type Backend interface {
	FetchRequest(ctx context.Context, requestID string) (*backend.AudioRequest, error)
	SubmitReprocess(ctx context.Context, requestID string, doc retry.Document) error
}

// Compile-time interface check.
var _ Backend = (*backend.Client)(nil)

// ErrRequestNotFound is returned by [Manager.Open] when neither the backend
// nor the local snapshot cache knows the request.
var ErrRequestNotFound = errors.New("review: audio request not found")

// ManagerConfig holds all dependencies for a [Manager].
type ManagerConfig struct {
	Backend Backend

	// Store is optional. Without it request snapshots are not cached across
	// backend outages and submissions leave no audit trail.
	Store store.Store

	// IdleTTL is how long a session may go untouched before the sweeper
	// removes it. Zero disables expiry.
	IdleTTL time.Duration

	// SweepInterval is how often [Manager.Run] checks for idle sessions.
	SweepInterval time.Duration
}

// Manager owns the lifecycle of review sessions: opening them against the
// generation backend, lookup by ID, submission, and idle expiry.
// All exported methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	backend       Backend
	store         store.Store
	idleTTL       time.Duration
	sweepInterval time.Duration
}

// NewManager creates a Manager with the given dependencies.
func NewManager(cfg ManagerConfig) *Manager {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Manager{
		sessions:      make(map[string]*Session),
		backend:       cfg.Backend,
		store:         cfg.Store,
		idleTTL:       cfg.IdleTTL,
		sweepInterval: interval,
	}
}

// Open fetches the audio request from the generation backend and starts a new
// review session over it. The fetched script is cached in the store so a
// later Open can survive a backend outage; when the backend is unreachable
// the cached snapshot is served instead.
func (m *Manager) Open(ctx context.Context, requestID string) (*Session, error) {
	now := time.Now().UTC()

	title, status, sections, err := m.loadRequest(ctx, requestID, now)
	if err != nil {
		return nil, err
	}

	s := newSession(uuid.NewString(), requestID, title, status, sections, now)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	slog.Info("review session opened",
		"session_id", s.id,
		"request_id", requestID,
		"sections", len(sections),
	)
	return s, nil
}

func (m *Manager) loadRequest(ctx context.Context, requestID string, now time.Time) (title, status string, sections []script.Section, err error) {
	ar, fetchErr := m.backend.FetchRequest(ctx, requestID)
	if fetchErr == nil {
		if m.store != nil {
			snap := store.Request{
				ID:        requestID,
				Title:     ar.Title,
				Status:    ar.Status,
				Sections:  ar.Sections,
				FetchedAt: now,
			}
			if err := m.store.SaveRequest(ctx, snap); err != nil {
				slog.Warn("cache request snapshot failed", "request_id", requestID, "err", err)
			}
		}
		return ar.Title, ar.Status, ar.Sections, nil
	}

	if errors.Is(fetchErr, backend.ErrNotFound) {
		return "", "", nil, ErrRequestNotFound
	}

	// Backend unreachable or erroring: serve the last good snapshot if we
	// have one, so review can continue through an outage.
	if m.store != nil {
		cached, cacheErr := m.store.GetRequest(ctx, requestID)
		if cacheErr == nil {
			slog.Warn("backend fetch failed, serving cached snapshot",
				"request_id", requestID,
				"fetched_at", cached.FetchedAt,
				"err", fetchErr,
			)
			return cached.Title, cached.Status, cached.Sections, nil
		}
	}
	return "", "", nil, fmt.Errorf("review: fetch request: %w", fetchErr)
}

// Get returns the session with the given ID.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Close removes the session with the given ID. Closing an unknown session
// reports false.
func (m *Manager) Close(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return false
	}
	delete(m.sessions, sessionID)
	slog.Info("review session closed", "session_id", sessionID)
	return true
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Submit serializes the session's ledger, sends it to the generation
// backend's reprocess endpoint, and records the outcome in the audit log.
// The ledger is never cleared, whether the backend accepts or rejects;
// the operator decides what to do with it after seeing the result.
func (m *Manager) Submit(ctx context.Context, s *Session) (store.Submission, error) {
	doc := s.Document()
	submitErr := m.backend.SubmitReprocess(ctx, s.RequestID(), doc)

	sub := store.Submission{
		ID:          uuid.NewString(),
		RequestID:   s.RequestID(),
		SessionID:   s.ID(),
		Document:    doc,
		SubmittedAt: time.Now().UTC(),
		Accepted:    submitErr == nil,
	}
	if submitErr != nil {
		sub.Detail = submitErr.Error()
	}

	if m.store != nil {
		if err := m.store.RecordSubmission(ctx, sub); err != nil {
			slog.Warn("record submission failed", "session_id", s.ID(), "err", err)
		}
	}

	if submitErr != nil {
		return sub, fmt.Errorf("review: submit reprocess: %w", submitErr)
	}
	slog.Info("reprocess submitted",
		"session_id", s.ID(),
		"request_id", s.RequestID(),
		"sections", len(doc.Sections),
	)
	return sub, nil
}

// SetIdleTTL replaces the idle expiry window. The sweeper applies the new
// value on its next pass. Used on configuration reload.
func (m *Manager) SetIdleTTL(ttl time.Duration) {
	m.mu.Lock()
	m.idleTTL = ttl
	m.mu.Unlock()
}

// Sweep removes sessions idle longer than the configured TTL and returns how
// many were removed. A zero TTL disables expiry.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idleTTL <= 0 {
		return 0
	}

	removed := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idleTTL {
			delete(m.sessions, id)
			removed++
			slog.Info("review session expired", "session_id", id, "request_id", s.requestID)
		}
	}
	return removed
}

// Run sweeps idle sessions on the configured interval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				slog.Debug("session sweep", "removed", n, "active", m.Count())
			}
		}
	}
}
