package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kivo360/clarity/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.SessionStore = (*SessionStore)(nil)
	_ core.ThoughtStore = (*ThoughtStore)(nil)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMigrate_Idempotent(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, Migrate(store.db))
	require.NoError(t, Migrate(store.db))
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess := core.NewSession("s1", "sequential_thinking")
	sess.Metadata["origin"] = "test"
	_, err := store.Sessions().Create(ctx, sess)
	require.NoError(t, err)

	got, err := store.Sessions().Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "sequential_thinking", got.ToolName)
	assert.Equal(t, "test", got.Metadata["origin"])
	assert.True(t, got.Active)
	assert.WithinDuration(t, sess.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = store.Sessions().Create(ctx, core.NewSession("s1", "debugging"))
	assert.True(t, core.IsValidation(err), "duplicate id rejected")

	_, err = store.Sessions().Get(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
}

func TestSessionStore_UpdateAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Sessions().Create(ctx, core.NewSession("s1", "debugging"))
	require.NoError(t, err)
	_, err = store.Sessions().Create(ctx, core.NewSession("s2", "debugging"))
	require.NoError(t, err)
	_, err = store.Sessions().Create(ctx, core.NewSession("s3", "mental_models"))
	require.NoError(t, err)

	inactive := false
	updated, err := store.Sessions().Update(ctx, "s2", core.SessionUpdate{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)

	active := true
	got, err := store.Sessions().List(ctx, core.SessionFilter{ToolName: "debugging", Active: &active})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	page, err := store.Sessions().List(ctx, core.SessionFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestThoughtStore_SaveAndSlotConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Sessions().Create(ctx, core.NewSession("s1", "debugging"))
	require.NoError(t, err)

	first, err := store.Thoughts().Save(ctx, &core.Thought{
		SessionID:         "s1",
		ThoughtNumber:     1,
		Content:           "check the logs",
		NextThoughtNeeded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	_, err = store.Thoughts().Save(ctx, &core.Thought{
		SessionID:     "s1",
		ThoughtNumber: 1,
		Content:       "racing write",
	})
	assert.True(t, core.IsConflict(err))
}

func TestThoughtStore_CrossReferencesSurviveRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Sessions().Create(ctx, core.NewSession("s1", "sequential_thinking"))
	require.NoError(t, err)

	first, err := store.Thoughts().Save(ctx, &core.Thought{SessionID: "s1", ThoughtNumber: 1, Content: "a"})
	require.NoError(t, err)

	rev := first.ID
	revision, err := store.Thoughts().Save(ctx, &core.Thought{
		SessionID:      "s1",
		ThoughtNumber:  2,
		Content:        "a, corrected",
		RevisesThought: &rev,
	})
	require.NoError(t, err)

	got, err := store.Thoughts().Get(ctx, "s1", revision.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RevisesThought)
	assert.Equal(t, first.ID, *got.RevisesThought)
	assert.Nil(t, got.BranchFromThought)
}

func TestThoughtStore_ListLatestCountSearch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Sessions().Create(ctx, core.NewSession("s1", "debugging"))
	require.NoError(t, err)

	for i, content := range []string{"check the logs", "form a hypothesis", "check the config"} {
		branch := core.MainBranch
		number := i + 1
		if i == 2 {
			branch, number = "alt", 1
		}
		_, err := store.Thoughts().Save(ctx, &core.Thought{
			SessionID:     "s1",
			BranchID:      branch,
			ThoughtNumber: number,
			Content:       content,
		})
		require.NoError(t, err)
	}

	main, err := store.Thoughts().ListByBranch(ctx, "s1", core.MainBranch)
	require.NoError(t, err)
	assert.Len(t, main, 2)

	tip, err := store.Thoughts().LatestForBranch(ctx, "s1", core.MainBranch)
	require.NoError(t, err)
	assert.Equal(t, 2, tip.ThoughtNumber)

	_, err = store.Thoughts().LatestForBranch(ctx, "s1", "ghost")
	assert.True(t, core.IsNotFound(err))

	n, err := store.Thoughts().CountBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := store.Thoughts().Search(ctx, "s1", "check", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSessionDelete_CascadesToThoughts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Sessions().Create(ctx, core.NewSession("s1", "debugging"))
	require.NoError(t, err)
	_, err = store.Thoughts().Save(ctx, &core.Thought{SessionID: "s1", ThoughtNumber: 1, Content: "a"})
	require.NoError(t, err)

	require.NoError(t, store.Sessions().Delete(ctx, "s1"))

	n, err := store.Thoughts().CountBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionStore_Cleanup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stale := core.NewSession("stale", "debugging")
	stale.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	stale.UpdatedAt = stale.CreatedAt
	_, err := store.Sessions().Create(ctx, stale)
	require.NoError(t, err)
	_, err = store.Sessions().Create(ctx, core.NewSession("fresh", "debugging"))
	require.NoError(t, err)

	removed, err := store.Sessions().Cleanup(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, removed)

	_, err = store.Sessions().Get(ctx, "stale")
	assert.True(t, core.IsNotFound(err))
}
