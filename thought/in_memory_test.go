package thought

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kivo360/clarity/core"
)

// Interface compliance (compile-time assertion)
var _ core.ThoughtStore = (*InMemoryStore)(nil)

func save(t *testing.T, store *InMemoryStore, sessionID, branchID string, number int, content string) *core.Thought {
	t.Helper()
	saved, err := store.Save(context.Background(), &core.Thought{
		SessionID:         sessionID,
		BranchID:          branchID,
		ThoughtNumber:     number,
		Content:           content,
		NextThoughtNeeded: true,
	})
	require.NoError(t, err)
	return saved
}

func TestInMemoryStore_Save_AssignsMonotonicIDs(t *testing.T) {
	store := NewInMemoryStore()

	first := save(t, store, "s1", core.MainBranch, 1, "define the problem")
	second := save(t, store, "s1", core.MainBranch, 2, "gather constraints")
	other := save(t, store, "s2", core.MainBranch, 1, "unrelated")

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, int64(3), other.ID, "ids are monotonic across sessions")
	assert.False(t, first.CreatedAt.IsZero())
}

func TestInMemoryStore_Save_ConflictOnTakenSlot(t *testing.T) {
	store := NewInMemoryStore()
	save(t, store, "s1", core.MainBranch, 1, "a")

	_, err := store.Save(context.Background(), &core.Thought{
		SessionID:     "s1",
		ThoughtNumber: 1,
		Content:       "b",
	})
	assert.True(t, core.IsConflict(err))

	// Same number on a different branch is a separate slot.
	save(t, store, "s1", "alt", 1, "c")
}

func TestInMemoryStore_Save_Validation(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Save(context.Background(), &core.Thought{ThoughtNumber: 1})
	assert.True(t, core.IsValidation(err))

	_, err = store.Save(context.Background(), &core.Thought{SessionID: "s1"})
	assert.True(t, core.IsValidation(err))
}

func TestInMemoryStore_ListByBranch_OrderedByNumber(t *testing.T) {
	store := NewInMemoryStore()
	save(t, store, "s1", core.MainBranch, 2, "second")
	save(t, store, "s1", core.MainBranch, 1, "first")
	save(t, store, "s1", "alt", 1, "branch")

	main, err := store.ListByBranch(context.Background(), "s1", core.MainBranch)
	require.NoError(t, err)
	require.Len(t, main, 2)
	assert.Equal(t, 1, main[0].ThoughtNumber)
	assert.Equal(t, 2, main[1].ThoughtNumber)
}

func TestInMemoryStore_LatestForBranch(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.LatestForBranch(ctx, "s1", core.MainBranch)
	assert.True(t, core.IsNotFound(err))

	save(t, store, "s1", core.MainBranch, 1, "a")
	save(t, store, "s1", core.MainBranch, 2, "b")

	tip, err := store.LatestForBranch(ctx, "s1", core.MainBranch)
	require.NoError(t, err)
	assert.Equal(t, 2, tip.ThoughtNumber)
}

func TestInMemoryStore_Update_AttachesCrossReferences(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	orig := save(t, store, "s1", core.MainBranch, 1, "original")

	ref := orig.ID
	updated, err := store.Update(ctx, "s1", orig.ID, core.ThoughtUpdate{
		RevisesThought: &ref,
		Metadata:       map[string]string{"note": "self"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.RevisesThought)
	assert.Equal(t, orig.ID, *updated.RevisesThought)
	assert.Equal(t, "original", updated.Content, "content never changes via Update")

	_, err = store.Update(ctx, "s1", 99, core.ThoughtUpdate{})
	assert.True(t, core.IsNotFound(err))
}

func TestInMemoryStore_CountAndSearch(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	save(t, store, "s1", core.MainBranch, 1, "check the logs")
	save(t, store, "s1", core.MainBranch, 2, "form a hypothesis")
	save(t, store, "s1", "alt", 1, "check the config")

	n, err := store.CountBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := store.Search(ctx, "s1", "check", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	limited, err := store.Search(ctx, "s1", "check", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestInMemoryStore_DeleteBySession(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	save(t, store, "s1", core.MainBranch, 1, "a")

	require.NoError(t, store.DeleteBySession(ctx, "s1"))

	n, err := store.CountBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInMemoryStore_ReturnedThoughtsAreClones(t *testing.T) {
	store := NewInMemoryStore()
	saved := save(t, store, "s1", core.MainBranch, 1, "a")
	saved.Content = "mutated"

	fresh, err := store.Get(context.Background(), "s1", saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", fresh.Content)
}
