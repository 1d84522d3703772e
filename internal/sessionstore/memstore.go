package sessionstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory [Store] for single-process deployments and tests.
// The zero value is not usable; construct via [NewMemStore].
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	results  map[string][]Result

	// now is swapped out in tests for deterministic timestamps.
	now func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]Session),
		results:  make(map[string][]Result),
		now:      time.Now,
	}
}

// PutSession implements [Store].
func (m *MemStore) PutSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if prev, ok := m.sessions[s.ID]; ok {
		s.CreatedAt = prev.CreatedAt
	} else if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.sessions[s.ID] = s
	return nil
}

// GetSession implements [Store].
func (m *MemStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// DeleteSession implements [Store].
func (m *MemStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	delete(m.results, id)
	return nil
}

// ListSessions implements [Store].
func (m *MemStore) ListSessions(_ context.Context, opts ...ListOpt) ([]Session, error) {
	o := ApplyListOpts(opts)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if o.Grade != 0 && s.Grade != o.Grade {
			continue
		}
		if !o.CreatedAfter.IsZero() && !s.CreatedAt.After(o.CreatedAfter) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if o.Limit > 0 && len(out) > o.Limit {
		out = out[:o.Limit]
	}
	return out, nil
}

// AppendResult implements [Store].
func (m *MemStore) AppendResult(_ context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.RecordedAt.IsZero() {
		r.RecordedAt = m.now()
	}
	m.results[r.SessionID] = append(m.results[r.SessionID], r)
	return nil
}

// Results implements [Store].
func (m *MemStore) Results(_ context.Context, sessionID string, limit int) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs := m.results[sessionID]
	if limit > 0 && len(rs) > limit {
		rs = rs[:limit]
	}
	out := make([]Result, len(rs))
	copy(out, rs)
	return out, nil
}
