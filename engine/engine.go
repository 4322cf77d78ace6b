package engine

import (
	"context"
	"sort"
	"time"

	"github.com/kivo360/clarity/core"
	"github.com/kivo360/clarity/logging"
	"github.com/kivo360/clarity/session"
	"github.com/kivo360/clarity/thought"
)

// Config defines tuning parameters for the engine's operational behavior.
type Config struct {
	// MaxConflictRetries bounds how often a lost sequencing race is retried
	// internally (recomputing the sequence number each time) before the
	// conflict is surfaced to the caller.
	MaxConflictRetries int

	// DefaultTotalThoughts is used when a request declares no expected
	// sequence length. Advisory only.
	DefaultTotalThoughts int
}

// DefaultConfig provides production-ready defaults.
var DefaultConfig = Config{
	MaxConflictRetries:   3,
	DefaultTotalThoughts: 5,
}

// Options configures an Engine instance using the functional options
// pattern. All services have in-memory defaults suitable for development
// and tests.
type Options struct {
	Config Config

	// SessionStore persists sessions. Defaults to the in-memory store.
	SessionStore core.SessionStore

	// ThoughtStore persists thoughts. Defaults to the in-memory store.
	ThoughtStore core.ThoughtStore

	// Logger provides structured logging. Defaults to NoOp if nil.
	Logger logging.Logger
}

// WithConfig overrides the engine configuration.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithSessionStore overrides the session store.
func WithSessionStore(s core.SessionStore) func(o *Options) {
	return func(o *Options) { o.SessionStore = s }
}

// WithThoughtStore overrides the thought store.
func WithThoughtStore(s core.ThoughtStore) func(o *Options) {
	return func(o *Options) { o.ThoughtStore = s }
}

// WithLogger overrides the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Engine is the progressive session engine. Given one incremental
// ThoughtRequest at a time it decides what kind of step it is (continuation,
// revision of an earlier step, or a new branch), assigns it a consistent
// position in the session's history, persists it behind the store contracts
// and returns enough context for the caller to decide the next step.
//
// Concurrency model:
//   - Mutations to a single (session, branch) pair are serialized through a
//     per-branch lock; different sessions and different branches proceed
//     fully in parallel.
//   - Reads never take the branch lock and may observe a slightly stale tip.
//   - Every store call is a suspension point carrying the caller's context;
//     the engine performs no internal retry on storage failures, only on
//     sequencing conflicts.
type Engine struct {
	sessions core.SessionStore
	thoughts core.ThoughtStore
	logger   logging.Logger
	config   Config
	locks    *branchLocks
}

// New creates an Engine with sensible defaults and optional configuration.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:       DefaultConfig,
		SessionStore: session.NewInMemoryStore(),
		ThoughtStore: thought.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.MaxConflictRetries < 1 {
		opts.Config.MaxConflictRetries = DefaultConfig.MaxConflictRetries
	}
	return &Engine{
		sessions: opts.SessionStore,
		thoughts: opts.ThoughtStore,
		logger:   opts.Logger,
		config:   opts.Config,
		locks:    newBranchLocks(),
	}
}

// ProcessThought is the sole mutating entry point. It resolves or creates
// the session, classifies the request, assigns the authoritative thought
// number under the branch lock, persists the thought and bumps the session.
//
// The caller's ThoughtNumber is an advisory hint only. Validation and
// not-found failures are deterministic and surfaced immediately; sequencing
// conflicts are retried a bounded number of times before surfacing.
func (e *Engine) ProcessThought(ctx context.Context, req *core.ThoughtRequest) (*core.ThoughtResponse, error) {
	if req == nil {
		return nil, core.NewValidationError("request", "required")
	}
	if req.Content == "" {
		return nil, core.NewValidationError("content", "required")
	}

	sess, err := e.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	branchID := req.BranchID
	if req.BranchFromThought != nil && branchID == core.MainBranch {
		return nil, core.NewValidationError("branch_id", "a new branch needs a branch id")
	}

	unlock := e.locks.acquire(sess.ID, branchID)
	defer unlock()

	var persisted *core.Thought
	var all []*core.Thought
	for attempt := 0; ; attempt++ {
		all, err = e.thoughts.ListBySession(ctx, sess.ID)
		if err != nil {
			return nil, core.NewStorageError("list session thoughts", err)
		}

		candidate, err := e.classify(req, sess, branchID, all)
		if err != nil {
			return nil, err
		}

		persisted, err = e.thoughts.Save(ctx, candidate)
		if err == nil {
			break
		}
		if !core.IsConflict(err) {
			return nil, err
		}
		// Lost the sequencing race against an external writer sharing the
		// store. Recompute the slot and try again, bounded.
		if attempt+1 >= e.config.MaxConflictRetries {
			e.logger.Warn("sequence conflict retries exhausted", "session_id", sess.ID, "branch_id", branchID)
			return nil, err
		}
	}

	if _, err := e.sessions.Update(ctx, sess.ID, core.SessionUpdate{}); err != nil {
		return nil, err
	}

	all = append(all, persisted)
	line, err := Lineage(all, branchID)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("thought persisted",
		"session_id", sess.ID,
		"branch_id", branchID,
		"thought_id", persisted.ID,
		"thought_number", persisted.ThoughtNumber,
		"revision", persisted.IsRevision(),
		"branch_root", persisted.IsBranchRoot(),
	)

	return &core.ThoughtResponse{
		Thought:           persisted,
		SessionID:         sess.ID,
		BranchID:          branchID,
		BranchLength:      len(branchOf(all, branchID)),
		NextThoughtNeeded: req.NeedsNext(),
		Lineage:           Summaries(line),
	}, nil
}

// resolveSession loads the target session or creates one. A request without
// a session id starts a fresh session; a request naming an unknown session
// id creates it when ToolName is supplied (caller-generated ids), otherwise
// fails with not-found. Inactive sessions reject writes.
func (e *Engine) resolveSession(ctx context.Context, req *core.ThoughtRequest) (*core.Session, error) {
	if req.SessionID == "" {
		if req.ToolName == "" {
			return nil, core.NewValidationError("tool_name", "required when creating a session")
		}
		sess, err := e.sessions.Create(ctx, core.NewSession("", req.ToolName))
		if err != nil {
			return nil, err
		}
		e.logger.Info("session created", "session_id", sess.ID, "tool_name", sess.ToolName)
		return sess, nil
	}

	sess, err := e.sessions.Get(ctx, req.SessionID)
	if core.IsNotFound(err) && req.ToolName != "" {
		sess, err = e.sessions.Create(ctx, core.NewSession(req.SessionID, req.ToolName))
		if err != nil {
			return nil, err
		}
		e.logger.Info("session created", "session_id", sess.ID, "tool_name", sess.ToolName)
		return sess, nil
	}
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		return nil, core.NewValidationError("session_id", "session is closed")
	}
	return sess, nil
}

// classify builds the candidate thought for the request: revision, new
// branch or continuation. Called under the branch lock with a fresh
// materialization of the session's thoughts.
func (e *Engine) classify(req *core.ThoughtRequest, sess *core.Session, branchID string, all []*core.Thought) (*core.Thought, error) {
	branchThoughts := branchOf(all, branchID)

	total := req.TotalThoughts
	if total <= 0 {
		total = e.config.DefaultTotalThoughts
	}

	candidate := &core.Thought{
		SessionID:         sess.ID,
		BranchID:          branchID,
		TotalThoughts:     total,
		Content:           req.Content,
		NextThoughtNeeded: req.NeedsNext(),
		Metadata:          cloneMetadata(req.Metadata),
		CreatedAt:         time.Now().UTC(),
	}
	if req.ClientToken != "" {
		if candidate.Metadata == nil {
			candidate.Metadata = make(map[string]string)
		}
		candidate.Metadata["client_token"] = req.ClientToken
	}

	switch {
	case req.RevisesThought != nil:
		// Revisions consume a fresh sequence slot in the same branch; the
		// corrected thought stays visible.
		target, err := ValidateRevision(branchThoughts, *req.RevisesThought)
		if err != nil {
			return nil, err
		}
		ref := target.ID
		candidate.RevisesThought = &ref
		candidate.ThoughtNumber = NextSequenceNumber(branchThoughts)

	case req.BranchFromThought != nil:
		if len(branchThoughts) > 0 {
			return nil, core.NewValidationError("branch_from_thought", "branch already exists; omit the fork reference to continue it")
		}
		if _, err := ValidateBranchFork(all, *req.BranchFromThought); err != nil {
			return nil, err
		}
		fork := *req.BranchFromThought
		candidate.BranchFromThought = &fork
		candidate.ThoughtNumber = 1

	default:
		if branchID != core.MainBranch && len(branchThoughts) == 0 {
			return nil, core.NewValidationError("branch_id", "unknown branch; a new branch needs branch_from_thought")
		}
		candidate.ThoughtNumber = NextSequenceNumber(branchThoughts)
	}

	return candidate, nil
}

// GetSession returns the session by id.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*core.Session, error) {
	return e.sessions.Get(ctx, sessionID)
}

// GetLineage returns the causal ordered history of thoughts leading to the
// branch tip, spanning ancestor branches. Content-generation strategies use
// it as "history so far". Reads do not block writers and may observe a
// slightly stale tip.
func (e *Engine) GetLineage(ctx context.Context, sessionID, branchID string) ([]*core.Thought, error) {
	if _, err := e.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	all, err := e.thoughts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, core.NewStorageError("list session thoughts", err)
	}
	return Lineage(all, branchID)
}

// ListBranches returns the branch identifiers of the session with the tip
// thought number of each, main branch first.
func (e *Engine) ListBranches(ctx context.Context, sessionID string) ([]core.BranchInfo, error) {
	if _, err := e.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	all, err := e.thoughts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, core.NewStorageError("list session thoughts", err)
	}

	tips := make(map[string]int)
	for _, t := range all {
		if t.ThoughtNumber > tips[t.BranchID] {
			tips[t.BranchID] = t.ThoughtNumber
		}
	}
	out := make([]core.BranchInfo, 0, len(tips))
	for id, tip := range tips {
		out = append(out, core.BranchInfo{BranchID: id, TipNumber: tip})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BranchID == core.MainBranch {
			return true
		}
		if out[j].BranchID == core.MainBranch {
			return false
		}
		return out[i].BranchID < out[j].BranchID
	})
	return out, nil
}

// CloseSession marks the session inactive. Subsequent writes are rejected;
// history stays readable until a cleanup sweep removes it.
func (e *Engine) CloseSession(ctx context.Context, sessionID string) (*core.Session, error) {
	inactive := false
	sess, err := e.sessions.Update(ctx, sessionID, core.SessionUpdate{Active: &inactive})
	if err != nil {
		return nil, err
	}
	e.logger.Info("session closed", "session_id", sessionID)
	return sess, nil
}

// Cleanup removes sessions idle for longer than the given age, cascading to
// their thoughts and evicting their branch locks. Returns the removed
// session ids.
func (e *Engine) Cleanup(ctx context.Context, olderThan time.Duration) ([]string, error) {
	removed, err := e.sessions.Cleanup(ctx, olderThan)
	if err != nil {
		return nil, err
	}
	for _, id := range removed {
		if err := e.thoughts.DeleteBySession(ctx, id); err != nil {
			return removed, core.NewStorageError("cascade thought removal", err)
		}
		e.locks.evictSession(id)
	}
	if len(removed) > 0 {
		e.logger.Info("cleanup sweep removed sessions", "count", len(removed))
	}
	return removed, nil
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
