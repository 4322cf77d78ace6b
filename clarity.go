// Package clarity provides a high-level façade over the core Engine and the
// session/thought stores, enabling rapid construction of progressive
// reasoning tools. Most applications interact with this package by:
//  1. Creating a Clarity via New() (optionally overriding default in-memory stores)
//  2. Registering one or more strategies (built-in cognitive tools or custom)
//  3. Submitting thoughts directly (ProcessThought) or generating them via a
//     registered strategy (Think)
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable store backend
// and a structured logger.
package clarity

import (
	"context"
	"io"
	"time"

	"github.com/kivo360/clarity/config"
	"github.com/kivo360/clarity/core"
	"github.com/kivo360/clarity/engine"
	"github.com/kivo360/clarity/logging"
	"github.com/kivo360/clarity/session"
	"github.com/kivo360/clarity/sqlite"
	"github.com/kivo360/clarity/strategy"
	"github.com/kivo360/clarity/thought"
)

// Options configures the Clarity instance.
type Options struct {
	// Engine configuration (conflict retries, sequencing defaults)
	EngineConfig engine.Config

	// Stores (defaults to in-memory implementations if not provided)
	SessionStore core.SessionStore
	ThoughtStore core.ThoughtStore

	// Model backs the built-in strategies. If nil, no built-in strategies
	// are registered; custom strategies can still be added via Register.
	Model strategy.Model

	// Strategies are registered in addition to the built-ins.
	Strategies []strategy.Strategy

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Clarity is the high-level façade aggregating the engine, the stores and
// the strategy registry.
type Clarity struct {
	opts       Options
	engine     *engine.Engine
	strategies *strategy.Registry
	closer     io.Closer
}

// New creates a new Clarity instance with optional overrides. Any unset
// store is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Clarity {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		SessionStore: session.NewInMemoryStore(),
		ThoughtStore: thought.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.SessionStore = opts.SessionStore
		o.ThoughtStore = opts.ThoughtStore
		o.Logger = opts.Logger
	})

	reg := strategy.NewRegistry()
	if opts.Model != nil {
		for _, s := range strategy.BuiltIn(opts.Model) {
			reg.Register(s)
		}
	}
	for _, s := range opts.Strategies {
		reg.Register(s)
	}

	return &Clarity{opts: opts, engine: e, strategies: reg}
}

// NewFromConfig creates a Clarity instance from a validated Config, opening
// the configured store backend and building a structured logger. Additional
// option functions are applied after the config-derived defaults, so callers
// can still override stores or inject a model.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*Clarity, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})

	var closer io.Closer
	base := []func(o *Options){
		func(o *Options) {
			o.EngineConfig = engine.Config{
				MaxConflictRetries:   cfg.Engine.MaxConflictRetries,
				DefaultTotalThoughts: cfg.Engine.DefaultTotalThoughts,
			}
			o.Logger = logger
		},
	}

	if cfg.Storage.Backend == config.BackendSQLite {
		store, err := sqlite.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		closer = store
		base = append(base, func(o *Options) {
			o.SessionStore = store.Sessions()
			o.ThoughtStore = store.Thoughts()
		})
	}

	c := New(append(base, optFns...)...)
	c.closer = closer
	return c, nil
}

// Close releases the underlying store backend, if any was opened by
// NewFromConfig. Instances built with New never hold resources to release.
func (c *Clarity) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Register adds a strategy to the registry, replacing any strategy already
// registered under the same name.
func (c *Clarity) Register(s strategy.Strategy) { c.strategies.Register(s) }

// Strategies returns the names of all registered strategies.
func (c *Clarity) Strategies() []string { return c.strategies.Names() }

// ProcessThought appends a thought to a session, creating the session when
// needed. See engine.Engine.ProcessThought for the full semantics.
func (c *Clarity) ProcessThought(ctx context.Context, req *core.ThoughtRequest) (*core.ThoughtResponse, error) {
	return c.engine.ProcessThought(ctx, req)
}

// Think generates the thought content with the strategy registered under the
// session's tool name and submits it. The request's Content is ignored; its
// positioning fields (branch, revision and fork references) are honoured.
func (c *Clarity) Think(ctx context.Context, req *core.ThoughtRequest) (*core.ThoughtResponse, error) {
	if req == nil {
		return nil, core.NewValidationError("request", "required")
	}

	toolName := req.ToolName
	if toolName == "" && req.SessionID != "" {
		sess, err := c.engine.GetSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		toolName = sess.ToolName
	}

	strat, ok := c.strategies.Get(toolName)
	if !ok {
		return nil, core.NewValidationError("tool_name", "no strategy registered under this name")
	}

	var history []*core.Thought
	if req.SessionID != "" {
		lineage, err := c.engine.GetLineage(ctx, req.SessionID, req.BranchID)
		if err != nil && !core.IsNotFound(err) {
			return nil, err
		}
		history = lineage
	}

	content, err := strat.Generate(ctx, history, req)
	if err != nil {
		return nil, err
	}

	generated := *req
	generated.ToolName = toolName
	generated.Content = content
	return c.engine.ProcessThought(ctx, &generated)
}

// GetSession returns a session by id.
func (c *Clarity) GetSession(ctx context.Context, sessionID string) (*core.Session, error) {
	return c.engine.GetSession(ctx, sessionID)
}

// GetLineage returns the effective ordered view of a branch, splicing the
// parent prefix in front of branch-local thoughts.
func (c *Clarity) GetLineage(ctx context.Context, sessionID, branchID string) ([]*core.Thought, error) {
	return c.engine.GetLineage(ctx, sessionID, branchID)
}

// ListBranches returns all branches of a session with their tip numbers,
// main branch first.
func (c *Clarity) ListBranches(ctx context.Context, sessionID string) ([]core.BranchInfo, error) {
	return c.engine.ListBranches(ctx, sessionID)
}

// CloseSession marks a session inactive. Subsequent writes to it are
// rejected; reads keep working.
func (c *Clarity) CloseSession(ctx context.Context, sessionID string) (*core.Session, error) {
	return c.engine.CloseSession(ctx, sessionID)
}

// Cleanup removes sessions idle for longer than olderThan together with
// their thoughts, returning the removed session ids.
func (c *Clarity) Cleanup(ctx context.Context, olderThan time.Duration) ([]string, error) {
	return c.engine.Cleanup(ctx, olderThan)
}
