package core

import (
	"context"
	"time"
)

// MainBranch is the branch id of a session's primary thought sequence.
// Thoughts with an empty BranchID belong to it.
const MainBranch = ""

// Thought is one persisted step in a session's reasoning sequence. Thoughts
// are append-only: after creation nothing may change except attaching
// cross-references through ThoughtStore.Update. Corrections happen through
// the revision mechanism, which creates a new thought pointing backwards at
// the corrected one.
type Thought struct {
	// ID is assigned by the store and monotonic within a store instance.
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`

	// BranchID scopes the thought to one branch; empty means main.
	BranchID string `json:"branch_id,omitempty"`

	// ThoughtNumber is the 1-based position within the branch.
	ThoughtNumber int `json:"thought_number"`

	// TotalThoughts is the caller-declared expected sequence length.
	// Advisory only, never enforced as a hard cap.
	TotalThoughts int `json:"total_thoughts,omitempty"`

	Content string `json:"content"`

	// RevisesThought references an earlier thought in the same branch that
	// this thought corrects. The referenced thought stays visible.
	RevisesThought *int64 `json:"revises_thought,omitempty"`

	// BranchFromThought references the thought in the parent branch this
	// branch forked from. Set only on a branch's first thought.
	BranchFromThought *int64 `json:"branch_from_thought,omitempty"`

	// NextThoughtNeeded is the caller's declaration that the sequence is
	// not yet complete.
	NextThoughtNeeded bool `json:"next_thought_needed"`

	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// IsRevision reports whether the thought corrects an earlier one.
func (t *Thought) IsRevision() bool { return t.RevisesThought != nil }

// IsBranchRoot reports whether the thought is the fork point of a non-main branch.
func (t *Thought) IsBranchRoot() bool { return t.BranchFromThought != nil }

// Clone returns a deep copy safe for independent mutation.
func (t *Thought) Clone() *Thought {
	clone := *t
	if t.RevisesThought != nil {
		v := *t.RevisesThought
		clone.RevisesThought = &v
	}
	if t.BranchFromThought != nil {
		v := *t.BranchFromThought
		clone.BranchFromThought = &v
	}
	if t.Metadata != nil {
		clone.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// ThoughtUpdate attaches cross-references to an existing thought. Content and
// ThoughtNumber are deliberately absent: they never change after creation.
type ThoughtUpdate struct {
	RevisesThought    *int64
	BranchFromThought *int64
	Metadata          map[string]string // merged key-by-key
}

// BranchInfo summarizes one branch of a session for listing purposes.
type BranchInfo struct {
	BranchID string `json:"branch_id"`
	// TipNumber is the highest ThoughtNumber currently on the branch.
	TipNumber int `json:"tip_number"`
}

// ThoughtStore persists Thought records scoped to sessions. Implementations
// must be safe for concurrent use. Save enforces slot uniqueness: persisting
// a second thought with an already-taken (session, branch, number) triple
// fails with a conflict error so the engine can recompute and retry.
type ThoughtStore interface {
	// Save persists a new thought, assigns its ID and returns the
	// persisted record.
	Save(ctx context.Context, t *Thought) (*Thought, error)

	// Get returns one thought of the session or a not-found error.
	Get(ctx context.Context, sessionID string, id int64) (*Thought, error)

	// ListBySession returns every thought of the session in creation order.
	ListBySession(ctx context.Context, sessionID string) ([]*Thought, error)

	// ListByBranch returns the thoughts of one branch ordered by ThoughtNumber.
	ListByBranch(ctx context.Context, sessionID, branchID string) ([]*Thought, error)

	// LatestForBranch returns the thought with the highest ThoughtNumber in
	// the branch, or a not-found error for an empty branch.
	LatestForBranch(ctx context.Context, sessionID, branchID string) (*Thought, error)

	// Update attaches cross-references; it never alters Content or
	// ThoughtNumber.
	Update(ctx context.Context, sessionID string, id int64, upd ThoughtUpdate) (*Thought, error)

	// CountBySession returns the total number of thoughts in the session.
	CountBySession(ctx context.Context, sessionID string) (int, error)

	// Search returns up to limit thoughts of the session whose content or
	// metadata contains the query substring. Operational tooling only.
	Search(ctx context.Context, sessionID, query string, limit int) ([]*Thought, error)

	// DeleteBySession removes every thought of the session. Used by the
	// cleanup sweep to cascade session removal.
	DeleteBySession(ctx context.Context, sessionID string) error
}
