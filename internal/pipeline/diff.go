package pipeline

import (
	"context"

	"github.com/peaceflow/peace/internal/cmdblock"
	"github.com/peaceflow/peace/internal/outcome"
	"github.com/peaceflow/peace/internal/state"
)

// Diff runs DiffBlock against two already-loaded States: ordinarily the
// current flow's stored current/goal pair, but the multi-profile diff
// supplemented feature (SPEC_FULL.md §5, Open Question ii) instead passes
// the current States found by cmdctx.MultiProfileLookup (profile_a, else
// profile_b) alongside the selected flow's stored goal, so this function stays
// agnostic to where the two States values came from.
func Diff(ctx context.Context, in cmdblock.Input, paths Paths, from, to state.States) (outcome.CmdOutcome[state.States], error) {
	res, diffs, err := cmdblock.Diff(ctx, in, from, to)
	if err != nil && !res.HasErrors() {
		return outcome.CmdOutcome[state.States]{}, err
	}
	if interrupted(ctx) {
		return outcome.NewExecutionInterrupted(diffs), nil
	}
	if res.HasErrors() {
		return blockInterrupted(res, diffs, 0), nil
	}
	_ = record(paths, "diff", outcome.Complete)
	return outcome.NewComplete(diffs, 1), nil
}

// DiffStored loads both states_current.yaml and states_goal.yaml for the
// current flow and diffs them, the common case of `peace diff` with no
// profile arguments.
func DiffStored(ctx context.Context, in cmdblock.Input, paths Paths) (outcome.CmdOutcome[state.States], error) {
	current, err := cmdblock.StatesCurrentRead(paths.FlowID, paths.StatesCurrent, in.Registry)
	if err != nil {
		return outcome.CmdOutcome[state.States]{}, err
	}
	goal, err := cmdblock.StatesGoalRead(paths.FlowID, paths.StatesGoal, in.Registry)
	if err != nil {
		return outcome.CmdOutcome[state.States]{}, err
	}
	return Diff(ctx, in, paths, current, goal)
}
