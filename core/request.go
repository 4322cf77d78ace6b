package core

// ThoughtRequest is the single mutating input accepted by the progressive
// session engine. Exactly one of three shapes applies per request:
//
//   - Revision: RevisesThought set, targeting an earlier thought in the branch
//   - New branch: BranchFromThought set and BranchID previously unused
//   - Continuation: neither reference set
type ThoughtRequest struct {
	// SessionID selects the session; empty starts a new one, in which case
	// ToolName is required.
	SessionID string `json:"session_id,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`

	Content string `json:"content"`

	// ThoughtNumber is a caller hint only. The engine is authoritative and
	// ignores it when assigning the persisted position.
	ThoughtNumber int `json:"thought_number,omitempty"`
	TotalThoughts int `json:"total_thoughts,omitempty"`

	BranchID          string `json:"branch_id,omitempty"`
	BranchFromThought *int64 `json:"branch_from_thought,omitempty"`
	RevisesThought    *int64 `json:"revises_thought,omitempty"`

	// NextThoughtNeeded defaults to true when nil.
	NextThoughtNeeded *bool `json:"next_thought_needed,omitempty"`

	// ClientToken is an optional caller-assigned idempotency token. The
	// engine persists it into thought metadata but does not deduplicate;
	// retry semantics are a caller responsibility.
	ClientToken string `json:"client_token,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// NeedsNext resolves the NextThoughtNeeded default.
func (r *ThoughtRequest) NeedsNext() bool {
	return r.NextThoughtNeeded == nil || *r.NextThoughtNeeded
}

// ThoughtSummary is a content-free reference to a persisted thought, used in
// lineage listings so responses stay small.
type ThoughtSummary struct {
	ID            int64  `json:"id"`
	BranchID      string `json:"branch_id,omitempty"`
	ThoughtNumber int    `json:"thought_number"`
	IsRevision    bool   `json:"is_revision,omitempty"`
}

// ThoughtResponse is returned by the engine after a thought is persisted. It
// carries enough context for the caller to decide the next step.
type ThoughtResponse struct {
	Thought   *Thought `json:"thought"`
	SessionID string   `json:"session_id"`
	BranchID  string   `json:"branch_id,omitempty"`

	// BranchLength is the branch's thought count after this write.
	BranchLength int `json:"branch_length"`

	// NextThoughtNeeded echoes the request's declaration.
	NextThoughtNeeded bool `json:"next_thought_needed"`

	// Lineage is the causal history leading to this thought, ids only.
	Lineage []ThoughtSummary `json:"lineage"`
}
