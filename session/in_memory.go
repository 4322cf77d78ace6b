package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kivo360/clarity/core"
)

// InMemoryStore is a volatile core.SessionStore implementation storing
// sessions in a process-local map. It is safe for concurrent access and best
// suited for tests or single-process deployments. Each returned session is
// cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create persists a new session, rejecting duplicate ids.
func (s *InMemoryStore) Create(_ context.Context, sess *core.Session) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return nil, core.NewValidationError("session_id", "session already exists")
	}
	s.sessions[sess.ID] = sess.Clone()
	return sess.Clone(), nil
}

// Get returns a clone of the session or a not-found error.
func (s *InMemoryStore) Get(_ context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.NewSessionNotFoundError(id)
	}
	return sess.Clone(), nil
}

// Update applies a partial field merge and bumps UpdatedAt.
func (s *InMemoryStore) Update(_ context.Context, id string, upd core.SessionUpdate) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.NewSessionNotFoundError(id)
	}
	if upd.Active != nil {
		sess.Active = *upd.Active
	}
	for k, v := range upd.Metadata {
		if sess.Metadata == nil {
			sess.Metadata = make(map[string]string)
		}
		sess.Metadata[k] = v
	}
	sess.Touch(time.Now().UTC())
	return sess.Clone(), nil
}

// Delete removes the session if present.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return core.NewSessionNotFoundError(id)
	}
	delete(s.sessions, id)
	return nil
}

// List returns sessions matching the filter ordered by CreatedAt.
func (s *InMemoryStore) List(_ context.Context, f core.SessionFilter) ([]*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*core.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if f.ToolName != "" && sess.ToolName != f.ToolName {
			continue
		}
		if f.Active != nil && sess.Active != *f.Active {
			continue
		}
		matched = append(matched, sess.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []*core.Session{}, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

// Cleanup removes sessions whose UpdatedAt is older than the given age and
// returns their ids so callers can cascade thought removal.
func (s *InMemoryStore) Cleanup(_ context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]string, 0)
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			sess.Active = false
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed, nil
}
