package clarity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kivo360/clarity/config"
	"github.com/kivo360/clarity/core"
	"github.com/kivo360/clarity/strategy"
)

func TestProcessThought_Defaults(t *testing.T) {
	c := New()
	ctx := context.Background()

	resp, err := c.ProcessThought(ctx, &core.ThoughtRequest{
		ToolName: "sequential_thinking",
		Content:  "Define the problem before proposing fixes.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, 1, resp.Thought.ThoughtNumber)

	lineage, err := c.GetLineage(ctx, resp.SessionID, core.MainBranch)
	require.NoError(t, err)
	assert.Len(t, lineage, 1)
}

func TestNew_RegistersBuiltInsWithModel(t *testing.T) {
	c := New(func(o *Options) {
		o.Model = strategy.NewMockModel("test-model")
	})

	names := c.Strategies()
	assert.ElementsMatch(t, []string{
		"sequential_thinking",
		"mental_models",
		"decision_framework",
		"debugging",
	}, names)
}

func TestThink_GeneratesAndSubmits(t *testing.T) {
	c := New(func(o *Options) {
		o.Model = strategy.NewMockModel("test-model")
	})
	ctx := context.Background()

	first, err := c.Think(ctx, &core.ThoughtRequest{ToolName: "debugging"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Thought.ThoughtNumber)
	assert.Contains(t, first.Thought.Content, "Mock response to:")

	// Continuing an existing session resolves the strategy from the
	// session's tool name.
	second, err := c.Think(ctx, &core.ThoughtRequest{SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Thought.ThoughtNumber)
	assert.Equal(t, 2, second.BranchLength)
}

func TestThink_UnknownStrategy(t *testing.T) {
	c := New()

	_, err := c.Think(context.Background(), &core.ThoughtRequest{ToolName: "oracle"})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestRegister_CustomStrategy(t *testing.T) {
	c := New()
	model := strategy.NewMockModel("test-model")
	c.Register(strategy.NewPromptStrategy("rubber_duck", "Explain it to the duck.", model))

	resp, err := c.Think(context.Background(), &core.ThoughtRequest{ToolName: "rubber_duck"})
	require.NoError(t, err)
	assert.Equal(t, "rubber_duck", mustSession(t, c, resp.SessionID).ToolName)
}

func mustSession(t *testing.T, c *Clarity, id string) *core.Session {
	t.Helper()
	sess, err := c.GetSession(context.Background(), id)
	require.NoError(t, err)
	return sess
}

func TestNewFromConfig_SQLiteBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Storage.DSN = ":memory:"

	c, err := NewFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	resp, err := c.ProcessThought(ctx, &core.ThoughtRequest{
		ToolName: "decision_framework",
		Content:  "List the options and the constraint that matters most.",
	})
	require.NoError(t, err)

	lineage, err := c.GetLineage(ctx, resp.SessionID, core.MainBranch)
	require.NoError(t, err)
	require.Len(t, lineage, 1)
	assert.Equal(t, resp.Thought.ID, lineage[0].ID)
}

func TestNewFromConfig_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "postgres"

	_, err := NewFromConfig(cfg)
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestClose_NoBackend(t *testing.T) {
	assert.NoError(t, New().Close())
}
