package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kivo360/clarity/core"
)

func mk(id int64, branchID string, number int) *core.Thought {
	return &core.Thought{ID: id, SessionID: "s1", BranchID: branchID, ThoughtNumber: number}
}

func mkRevision(id int64, branchID string, number int, revises int64) *core.Thought {
	t := mk(id, branchID, number)
	t.RevisesThought = &revises
	return t
}

func mkBranchRoot(id int64, branchID string, fork int64) *core.Thought {
	t := mk(id, branchID, 1)
	t.BranchFromThought = &fork
	return t
}

func TestNextSequenceNumber(t *testing.T) {
	assert.Equal(t, 1, NextSequenceNumber(nil))
	assert.Equal(t, 3, NextSequenceNumber([]*core.Thought{
		mk(1, core.MainBranch, 1),
		mk(2, core.MainBranch, 2),
	}))
	// Unordered input still yields max+1.
	assert.Equal(t, 4, NextSequenceNumber([]*core.Thought{
		mk(3, core.MainBranch, 3),
		mk(1, core.MainBranch, 1),
	}))
}

func TestValidateRevision(t *testing.T) {
	branch := []*core.Thought{mk(1, core.MainBranch, 1), mk(2, core.MainBranch, 2)}

	target, err := ValidateRevision(branch, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), target.ID)

	_, err = ValidateRevision(branch, 99)
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestValidateBranchFork(t *testing.T) {
	all := []*core.Thought{
		mk(1, core.MainBranch, 1),
		mk(2, core.MainBranch, 2),
		mk(3, core.MainBranch, 3),
	}

	prefix, err := ValidateBranchFork(all, 2)
	require.NoError(t, err)
	require.Len(t, prefix, 2, "prefix runs up to and including the fork point")
	assert.Equal(t, int64(2), prefix[1].ID)

	_, err = ValidateBranchFork(all, 99)
	assert.True(t, core.IsValidation(err))
}

func TestValidateBranchFork_RejectsRevisionTarget(t *testing.T) {
	all := []*core.Thought{
		mk(1, core.MainBranch, 1),
		mkRevision(2, core.MainBranch, 2, 1),
	}

	_, err := ValidateBranchFork(all, 2)
	assert.True(t, core.IsValidation(err))
}

func TestLineage_MainOnly(t *testing.T) {
	all := []*core.Thought{
		mk(2, core.MainBranch, 2),
		mk(1, core.MainBranch, 1),
	}

	line, err := Lineage(all, core.MainBranch)
	require.NoError(t, err)
	require.Len(t, line, 2)
	assert.Equal(t, int64(1), line[0].ID)
	assert.Equal(t, int64(2), line[1].ID)
}

func TestLineage_SplicesParentPrefix(t *testing.T) {
	all := []*core.Thought{
		mk(1, core.MainBranch, 1),
		mk(2, core.MainBranch, 2),
		mk(3, core.MainBranch, 3), // after the fork point, excluded from alt's lineage
		mkBranchRoot(4, "alt", 2),
		mk(5, "alt", 2),
	}

	line, err := Lineage(all, "alt")
	require.NoError(t, err)
	require.Len(t, line, 4)
	assert.Equal(t, []int64{1, 2, 4, 5}, ids(line))
}

func TestLineage_NestedBranches(t *testing.T) {
	all := []*core.Thought{
		mk(1, core.MainBranch, 1),
		mk(2, core.MainBranch, 2),
		mkBranchRoot(3, "alt", 1),
		mk(4, "alt", 2),
		mkBranchRoot(5, "alt2", 3), // forks from alt's root
	}

	line, err := Lineage(all, "alt2")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids(line))
}

func TestLineage_RevisionsStayVisible(t *testing.T) {
	all := []*core.Thought{
		mk(1, core.MainBranch, 1),
		mkRevision(2, core.MainBranch, 2, 1),
	}

	line, err := Lineage(all, core.MainBranch)
	require.NoError(t, err)
	require.Len(t, line, 2, "a revision never replaces its target in place")
	assert.Equal(t, []int64{1, 2}, ids(line))
}

func TestLineage_UnknownBranch(t *testing.T) {
	_, err := Lineage([]*core.Thought{mk(1, core.MainBranch, 1)}, "ghost")
	assert.True(t, core.IsNotFound(err))
}

func TestSummaries(t *testing.T) {
	sums := Summaries([]*core.Thought{
		mk(1, core.MainBranch, 1),
		mkRevision(2, core.MainBranch, 2, 1),
	})

	require.Len(t, sums, 2)
	assert.False(t, sums[0].IsRevision)
	assert.True(t, sums[1].IsRevision)
	assert.Equal(t, int64(2), sums[1].ID)
}

func ids(thoughts []*core.Thought) []int64 {
	out := make([]int64, 0, len(thoughts))
	for _, t := range thoughts {
		out = append(out, t.ID)
	}
	return out
}
