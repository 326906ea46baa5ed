package pipeline

import (
	"context"

	"github.com/peaceflow/peace/internal/cmdblock"
	"github.com/peaceflow/peace/internal/errs"
	"github.com/peaceflow/peace/internal/outcome"
	"github.com/peaceflow/peace/internal/state"
)

// AppliedStates is the Value of an apply pipeline's CmdOutcome.
type AppliedStates struct {
	Before state.States
	Goal   state.States
	After  state.States
}

// Apply runs the full apply command: StatesCurrentReadBlock,
// StatesGoalReadBlock, ApplyStateSyncCheckBlock, then ApplyExecBlock,
// persisting the post-apply current state. dryRun routes every item
// through ApplyDry instead of Apply (spec's apply_dry supplemented
// feature) and skips the final write, since a dry run must not mutate
// persisted state. syncMode selects which stored snapshots the sync check
// re-verifies (spec §4.F/§4.G's None/Current/Goal/Both modes).
func Apply(ctx context.Context, in cmdblock.Input, paths Paths, dryRun bool, syncMode cmdblock.SyncCheckMode) (outcome.CmdOutcome[AppliedStates], error) {
	var out AppliedStates

	stored, err := cmdblock.StatesCurrentRead(paths.FlowID, paths.StatesCurrent, in.Registry)
	if err != nil {
		return outcome.CmdOutcome[AppliedStates]{}, err
	}
	storedGoal, err := cmdblock.StatesGoalRead(paths.FlowID, paths.StatesGoal, in.Registry)
	if err != nil {
		return outcome.CmdOutcome[AppliedStates]{}, err
	}
	out.Goal = storedGoal

	syncRes, fresh, goal, mismatched, err := cmdblock.StateSyncCheck(ctx, in, syncMode, stored, storedGoal)
	if err != nil && !syncRes.HasErrors() {
		return outcome.CmdOutcome[AppliedStates]{}, err
	}
	out.Before = fresh
	out.Goal = goal
	if interrupted(ctx) {
		_ = record(paths, "apply", outcome.ExecutionInterrupted)
		return outcome.NewExecutionInterrupted(out), nil
	}
	if syncRes.HasErrors() {
		_ = record(paths, "apply", outcome.BlockInterrupted)
		return blockInterrupted(syncRes, out, 0), nil
	}
	if len(mismatched) > 0 {
		return outcome.CmdOutcome[AppliedStates]{}, &errs.StatesSyncMismatch{Items: mismatched}
	}

	execRes, after, err := cmdblock.ApplyExec(ctx, in, fresh, goal, dryRun)
	if err != nil && !execRes.HasErrors() {
		return outcome.CmdOutcome[AppliedStates]{}, err
	}
	out.After = after
	if interrupted(ctx) {
		_ = record(paths, "apply", outcome.ExecutionInterrupted)
		return outcome.NewExecutionInterrupted(out), nil
	}
	if execRes.HasErrors() {
		_ = record(paths, "apply", outcome.BlockInterrupted)
		return blockInterrupted(execRes, out, 1), nil
	}

	if !dryRun {
		if err := state.WriteStates(paths.StatesCurrent, after); err != nil {
			return outcome.CmdOutcome[AppliedStates]{}, err
		}
	}

	cmd := "apply"
	if dryRun {
		cmd = "apply-dry"
	}
	if err := record(paths, cmd, outcome.Complete); err != nil {
		return outcome.CmdOutcome[AppliedStates]{}, err
	}
	return outcome.NewComplete(out, 2), nil
}

// Clean runs the clean command: a forward DiscoverCurrent pass seeds
// every item's current state, then cmdblock.Clean tears each item down in
// reverse topological order via a check-then-apply cycle against
// StateClean's goal, and the post-clean current state is persisted.
// dryRun routes every item through ApplyDry instead of Apply and skips
// the final write, matching Apply's dry-run contract.
func Clean(ctx context.Context, in cmdblock.Input, paths Paths, dryRun bool) (outcome.CmdOutcome[state.States], error) {
	discRes, current, err := cmdblock.DiscoverCurrent(ctx, in)
	if err != nil && !discRes.HasErrors() {
		return outcome.CmdOutcome[state.States]{}, err
	}
	if interrupted(ctx) {
		_ = record(paths, "clean", outcome.ExecutionInterrupted)
		return outcome.NewExecutionInterrupted(current), nil
	}
	if discRes.HasErrors() {
		_ = record(paths, "clean", outcome.BlockInterrupted)
		return blockInterrupted(discRes, current, 0), nil
	}

	res, after, err := cmdblock.Clean(ctx, in, current, dryRun)
	if err != nil && !res.HasErrors() {
		return outcome.CmdOutcome[state.States]{}, err
	}
	if interrupted(ctx) {
		_ = record(paths, "clean", outcome.ExecutionInterrupted)
		return outcome.NewExecutionInterrupted(after), nil
	}
	if res.HasErrors() {
		_ = record(paths, "clean", outcome.BlockInterrupted)
		return blockInterrupted(res, after, 1), nil
	}

	if !dryRun {
		if err := state.WriteStates(paths.StatesCurrent, after); err != nil {
			return outcome.CmdOutcome[state.States]{}, err
		}
	}

	cmd := "clean"
	if dryRun {
		cmd = "clean-dry"
	}
	if err := record(paths, cmd, outcome.Complete); err != nil {
		return outcome.CmdOutcome[state.States]{}, err
	}
	return outcome.NewComplete(after, 2), nil
}
