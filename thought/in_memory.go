package thought

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kivo360/clarity/core"
)

// InMemoryStore is a process-local core.ThoughtStore. Thoughts are held in
// per-session append-only slices guarded by an RWMutex; ids are assigned from
// a store-wide monotonic counter. Data is cloned on save and retrieval to
// avoid accidental external mutation of internal records.
//
// Save enforces slot uniqueness on (session, branch, thought number) and
// fails with a conflict error when two writers race for the same slot, which
// the engine resolves by recomputing the sequence number and retrying.
type InMemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	thoughts map[string][]*core.Thought // sessionID -> thoughts in creation order
}

// NewInMemoryStore returns an empty in-memory thought store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{thoughts: make(map[string][]*core.Thought)}
}

// Save persists a new thought, assigning the next monotonic id.
func (s *InMemoryStore) Save(_ context.Context, t *core.Thought) (*core.Thought, error) {
	if t.SessionID == "" {
		return nil, core.NewValidationError("session_id", "required")
	}
	if t.ThoughtNumber < 1 {
		return nil, core.NewValidationError("thought_number", "must be >= 1")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.thoughts[t.SessionID] {
		if existing.BranchID == t.BranchID && existing.ThoughtNumber == t.ThoughtNumber {
			return nil, core.NewConflictError(
				fmt.Sprintf("%s/%s", t.SessionID, branchLabel(t.BranchID)),
				fmt.Sprintf("thought number %d already taken", t.ThoughtNumber),
			)
		}
	}

	s.nextID++
	stored := t.Clone()
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.thoughts[t.SessionID] = append(s.thoughts[t.SessionID], stored)
	return stored.Clone(), nil
}

// Get returns one thought of the session by id.
func (s *InMemoryStore) Get(_ context.Context, sessionID string, id int64) (*core.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.thoughts[sessionID] {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, core.NewThoughtNotFoundError(id)
}

// ListBySession returns every thought of the session in creation order.
func (s *InMemoryStore) ListBySession(_ context.Context, sessionID string) ([]*core.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.thoughts[sessionID]
	out := make([]*core.Thought, 0, len(all))
	for _, t := range all {
		out = append(out, t.Clone())
	}
	return out, nil
}

// ListByBranch returns the thoughts of one branch ordered by ThoughtNumber.
func (s *InMemoryStore) ListByBranch(_ context.Context, sessionID, branchID string) ([]*core.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Thought, 0)
	for _, t := range s.thoughts[sessionID] {
		if t.BranchID == branchID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThoughtNumber < out[j].ThoughtNumber })
	return out, nil
}

// LatestForBranch returns the branch tip or a not-found error for an empty branch.
func (s *InMemoryStore) LatestForBranch(_ context.Context, sessionID, branchID string) (*core.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tip *core.Thought
	for _, t := range s.thoughts[sessionID] {
		if t.BranchID != branchID {
			continue
		}
		if tip == nil || t.ThoughtNumber > tip.ThoughtNumber {
			tip = t
		}
	}
	if tip == nil {
		return nil, core.NewNotFoundError(fmt.Sprintf("%s/%s", sessionID, branchLabel(branchID)), "branch has no thoughts")
	}
	return tip.Clone(), nil
}

// Update attaches cross-references to an existing thought.
func (s *InMemoryStore) Update(_ context.Context, sessionID string, id int64, upd core.ThoughtUpdate) (*core.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.thoughts[sessionID] {
		if t.ID != id {
			continue
		}
		if upd.RevisesThought != nil {
			v := *upd.RevisesThought
			t.RevisesThought = &v
		}
		if upd.BranchFromThought != nil {
			v := *upd.BranchFromThought
			t.BranchFromThought = &v
		}
		for k, v := range upd.Metadata {
			if t.Metadata == nil {
				t.Metadata = make(map[string]string)
			}
			t.Metadata[k] = v
		}
		return t.Clone(), nil
	}
	return nil, core.NewThoughtNotFoundError(id)
}

// CountBySession returns the total number of thoughts in the session.
func (s *InMemoryStore) CountBySession(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.thoughts[sessionID]), nil
}

// Search performs a substring match over thought content and metadata values.
// Results are returned in creation order up to the provided limit.
func (s *InMemoryStore) Search(_ context.Context, sessionID, query string, limit int) ([]*core.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Thought, 0)
	for _, t := range s.thoughts[sessionID] {
		if limit > 0 && len(out) >= limit {
			break
		}
		if query == "" || matches(t, query) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// DeleteBySession removes every thought of the session.
func (s *InMemoryStore) DeleteBySession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.thoughts, sessionID)
	return nil
}

func matches(t *core.Thought, query string) bool {
	if strings.Contains(t.Content, query) {
		return true
	}
	for _, v := range t.Metadata {
		if strings.Contains(v, query) {
			return true
		}
	}
	return false
}

func branchLabel(branchID string) string {
	if branchID == core.MainBranch {
		return "main"
	}
	return branchID
}
