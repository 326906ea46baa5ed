package pipeline

import (
	"context"

	"github.com/peaceflow/peace/internal/cmdblock"
	"github.com/peaceflow/peace/internal/outcome"
	"github.com/peaceflow/peace/internal/state"
)

// DiscoveredStates is the Value of a discover pipeline's CmdOutcome.
type DiscoveredStates struct {
	Current state.States
	Goal    state.States
}

// Discover runs StatesDiscoverCurrentBlock then StatesDiscoverGoalBlock in
// sequence, persisting each to its states_*.yaml file as it completes.
// Either block failing short-circuits the other (spec §4.G step 3).
func Discover(ctx context.Context, in cmdblock.Input, paths Paths) (outcome.CmdOutcome[DiscoveredStates], error) {
	var out DiscoveredStates

	currRes, curr, err := cmdblock.DiscoverCurrent(ctx, in)
	if err != nil && !currRes.HasErrors() {
		return outcome.CmdOutcome[DiscoveredStates]{}, err
	}
	out.Current = curr
	if interrupted(ctx) {
		_ = record(paths, "discover", outcome.ExecutionInterrupted)
		return outcome.NewExecutionInterrupted(out), nil
	}
	if currRes.HasErrors() {
		_ = record(paths, "discover", outcome.BlockInterrupted)
		return blockInterrupted(currRes, out, 0), nil
	}
	if err := state.WriteStates(paths.StatesCurrent, curr); err != nil {
		return outcome.CmdOutcome[DiscoveredStates]{}, err
	}

	goalRes, goal, err := cmdblock.DiscoverGoal(ctx, in)
	if err != nil && !goalRes.HasErrors() {
		return outcome.CmdOutcome[DiscoveredStates]{}, err
	}
	out.Goal = goal
	if interrupted(ctx) {
		_ = record(paths, "discover", outcome.ExecutionInterrupted)
		return outcome.NewExecutionInterrupted(out), nil
	}
	if goalRes.HasErrors() {
		_ = record(paths, "discover", outcome.BlockInterrupted)
		return blockInterrupted(goalRes, out, 1), nil
	}
	if err := state.WriteStates(paths.StatesGoal, goal); err != nil {
		return outcome.CmdOutcome[DiscoveredStates]{}, err
	}

	if err := record(paths, "discover", outcome.Complete); err != nil {
		return outcome.CmdOutcome[DiscoveredStates]{}, err
	}
	return outcome.NewComplete(out, 2), nil
}

// DiscoverCurrentOnly runs just StatesDiscoverCurrentBlock, used by the
// `peace discover current` subcommand variant.
func DiscoverCurrentOnly(ctx context.Context, in cmdblock.Input, paths Paths) (outcome.CmdOutcome[state.States], error) {
	res, curr, err := cmdblock.DiscoverCurrent(ctx, in)
	if err != nil && !res.HasErrors() {
		return outcome.CmdOutcome[state.States]{}, err
	}
	if interrupted(ctx) {
		return outcome.NewExecutionInterrupted(curr), nil
	}
	if res.HasErrors() {
		return blockInterrupted(res, curr, 0), nil
	}
	if err := state.WriteStates(paths.StatesCurrent, curr); err != nil {
		return outcome.CmdOutcome[state.States]{}, err
	}
	_ = record(paths, "discover-current", outcome.Complete)
	return outcome.NewComplete(curr, 1), nil
}

// DiscoverGoalOnly runs just StatesDiscoverGoalBlock.
func DiscoverGoalOnly(ctx context.Context, in cmdblock.Input, paths Paths) (outcome.CmdOutcome[state.States], error) {
	res, goal, err := cmdblock.DiscoverGoal(ctx, in)
	if err != nil && !res.HasErrors() {
		return outcome.CmdOutcome[state.States]{}, err
	}
	if interrupted(ctx) {
		return outcome.NewExecutionInterrupted(goal), nil
	}
	if res.HasErrors() {
		return blockInterrupted(res, goal, 0), nil
	}
	if err := state.WriteStates(paths.StatesGoal, goal); err != nil {
		return outcome.CmdOutcome[state.States]{}, err
	}
	_ = record(paths, "discover-goal", outcome.Complete)
	return outcome.NewComplete(goal, 1), nil
}
