package store

import (
	"context"
	"slices"
	"sync"
)

// Compile-time interface check.
var _ Store = (*Memory)(nil)

// Memory is an in-memory [Store]. It is the default when no database DSN is
// configured, and the store used by handler tests.
type Memory struct {
	mu          sync.RWMutex
	requests    map[string]Request
	submissions map[string][]Submission
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		requests:    make(map[string]Request),
		submissions: make(map[string][]Submission),
	}
}

func (m *Memory) SaveRequest(_ context.Context, req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id string) (Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (m *Memory) RecordSubmission(_ context.Context, sub Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[sub.RequestID] = append(m.submissions[sub.RequestID], sub)
	return nil
}

func (m *Memory) Submissions(_ context.Context, requestID string, limit int) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := slices.Clone(m.submissions[requestID])
	slices.Reverse(subs) // newest first
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	if subs == nil {
		subs = []Submission{}
	}
	return subs, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}
