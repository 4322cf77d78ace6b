package engine

import (
	"fmt"
	"sort"

	"github.com/kivo360/clarity/core"
)

// The branch resolver is a set of pure functions over thought collections
// already materialized from the store. It computes lineage, validates
// revision and fork references and assigns sequence numbers. No I/O happens
// here; the engine serializes writers per branch before calling in.

// NextSequenceNumber returns the next ThoughtNumber for a branch:
// max(existing) + 1, or 1 for an empty branch.
func NextSequenceNumber(branchThoughts []*core.Thought) int {
	next := 1
	for _, t := range branchThoughts {
		if t.ThoughtNumber >= next {
			next = t.ThoughtNumber + 1
		}
	}
	return next
}

// ValidateRevision confirms the referenced id exists in the branch and
// precedes the would-be new thought. The revision itself consumes the next
// sequence slot, so any existing thought in the branch is a valid target.
func ValidateRevision(branchThoughts []*core.Thought, revises int64) (*core.Thought, error) {
	for _, t := range branchThoughts {
		if t.ID == revises {
			return t, nil
		}
	}
	return nil, &core.Error{
		Code:  core.ErrorCodeValidation,
		Field: "revises_thought",
		Ref:   fmt.Sprintf("%d", revises),
		Msg:   "referenced thought does not exist in the branch",
	}
}

// ValidateBranchFork confirms the fork reference points at a real lineage
// node of some existing branch and returns the parent lineage prefix up to
// and including the fork point. Revisions are annotations, not lineage
// nodes, so forking from a revision thought is rejected.
func ValidateBranchFork(all []*core.Thought, fork int64) ([]*core.Thought, error) {
	var target *core.Thought
	for _, t := range all {
		if t.ID == fork {
			target = t
			break
		}
	}
	if target == nil {
		return nil, &core.Error{
			Code:  core.ErrorCodeValidation,
			Field: "branch_from_thought",
			Ref:   fmt.Sprintf("%d", fork),
			Msg:   "referenced thought does not exist in the session",
		}
	}
	if target.IsRevision() {
		return nil, &core.Error{
			Code:  core.ErrorCodeValidation,
			Field: "branch_from_thought",
			Ref:   fmt.Sprintf("%d", fork),
			Msg:   "cannot fork from a revision thought",
		}
	}

	parent, err := Lineage(all, target.BranchID)
	if err != nil {
		return nil, err
	}
	return truncateAfter(parent, fork), nil
}

// Lineage produces the causal ordered history of thoughts from root to the
// branch tip: the parent branch's history up to the fork point, recursively
// to main, followed by the branch's own thoughts in ThoughtNumber order.
// The sequence is finite, bounded by the session's total thought count.
func Lineage(all []*core.Thought, branchID string) ([]*core.Thought, error) {
	return lineage(all, branchID, map[string]bool{})
}

func lineage(all []*core.Thought, branchID string, visited map[string]bool) ([]*core.Thought, error) {
	if visited[branchID] {
		return nil, &core.Error{
			Code: core.ErrorCodeValidation,
			Ref:  branchID,
			Msg:  "branch lineage contains a cycle",
		}
	}
	visited[branchID] = true

	own := branchOf(all, branchID)
	if branchID == core.MainBranch {
		return own, nil
	}
	if len(own) == 0 {
		return nil, core.NewNotFoundError(branchID, "branch not found")
	}

	root := own[0]
	if root.BranchFromThought == nil {
		// History invariant: a non-main branch's first thought carries its
		// fork reference.
		return nil, &core.Error{
			Code: core.ErrorCodeValidation,
			Ref:  branchID,
			Msg:  "branch root is missing its fork reference",
		}
	}
	fork := *root.BranchFromThought

	var parentBranch string
	found := false
	for _, t := range all {
		if t.ID == fork {
			parentBranch = t.BranchID
			found = true
			break
		}
	}
	if !found {
		return nil, core.NewNotFoundError(fmt.Sprintf("%d", fork), "fork thought not found")
	}

	parent, err := lineage(all, parentBranch, visited)
	if err != nil {
		return nil, err
	}
	return append(truncateAfter(parent, fork), own...), nil
}

// Summaries converts a lineage into its id-only form for responses.
func Summaries(thoughts []*core.Thought) []core.ThoughtSummary {
	out := make([]core.ThoughtSummary, 0, len(thoughts))
	for _, t := range thoughts {
		out = append(out, core.ThoughtSummary{
			ID:            t.ID,
			BranchID:      t.BranchID,
			ThoughtNumber: t.ThoughtNumber,
			IsRevision:    t.IsRevision(),
		})
	}
	return out
}

// branchOf filters and orders one branch's thoughts by ThoughtNumber.
func branchOf(all []*core.Thought, branchID string) []*core.Thought {
	out := make([]*core.Thought, 0)
	for _, t := range all {
		if t.BranchID == branchID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThoughtNumber < out[j].ThoughtNumber })
	return out
}

// truncateAfter cuts a lineage just past the thought with the given id. The
// full slice is returned when the id is absent.
func truncateAfter(thoughts []*core.Thought, id int64) []*core.Thought {
	for i, t := range thoughts {
		if t.ID == id {
			return thoughts[:i+1]
		}
	}
	return thoughts
}
