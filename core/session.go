package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session represents a named, ongoing reasoning context owned by one
// cognitive-tool strategy. Sessions accumulate thoughts across many separate
// calls; the engine mutates UpdatedAt and Active through the SessionStore on
// every accepted write.
//
// Contract:
//   - ToolName is immutable after creation
//   - UpdatedAt >= CreatedAt always; UpdatedAt advances on every mutation
//   - Active becomes false only through explicit close or a cleanup sweep
type Session struct {
	ID        string            `json:"id"`
	ToolName  string            `json:"tool_name"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Active    bool              `json:"active"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewSession creates an active session for the given tool. An empty id is
// replaced with a generated UUID.
func NewSession(id, toolName string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Session{ID: id, ToolName: toolName, CreatedAt: now, UpdatedAt: now, Active: true, Metadata: map[string]string{}}
}

// Touch advances UpdatedAt, never moving it backwards.
func (s *Session) Touch(now time.Time) {
	if now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	}
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

// SessionUpdate describes a partial field merge applied by SessionStore.Update.
// ToolName is intentionally absent: it is immutable after creation. Nil
// pointers and nil maps leave the corresponding field untouched.
type SessionUpdate struct {
	Active   *bool
	Metadata map[string]string // merged key-by-key, not replaced wholesale
}

// SessionFilter narrows SessionStore.List results. Zero values match
// everything; Limit == 0 means no limit.
type SessionFilter struct {
	ToolName string
	Active   *bool
	Limit    int
	Offset   int
}

// SessionStore persists Session records. Implementations must be safe for
// concurrent use and must never hand out aliases of internal state. All
// operations may fail with a not-found or storage error; callers never
// assume success.
type SessionStore interface {
	// Create persists a new session. Fails with a validation error when a
	// session with the same id already exists.
	Create(ctx context.Context, s *Session) (*Session, error)

	// Get returns the session or a not-found error.
	Get(ctx context.Context, id string) (*Session, error)

	// Update applies a partial field merge and bumps UpdatedAt, returning
	// the updated record.
	Update(ctx context.Context, id string, upd SessionUpdate) (*Session, error)

	// Delete removes the session or returns a not-found error.
	Delete(ctx context.Context, id string) error

	// List returns sessions matching the filter, ordered by CreatedAt.
	List(ctx context.Context, f SessionFilter) ([]*Session, error)

	// Cleanup deactivates and removes sessions whose UpdatedAt is older
	// than the given age, returning the ids of the removed sessions so
	// callers can cascade (thought removal, lock eviction).
	Cleanup(ctx context.Context, olderThan time.Duration) ([]string, error)
}
