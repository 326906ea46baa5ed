package cmdblock

import (
	"context"
	"fmt"

	"github.com/peaceflow/peace/internal/flow"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/state"
)

// ApplyExec runs ApplyExecBlock: for every item forward over in.Graph,
// resolve params fully, diff current against goal, check whether work is
// required, and if so run Apply (or ApplyDry when dryRun, spec's apply_dry
// supplemented feature). Successors observe the resulting state via
// InsertState before they run, so a downstream item's goal computation can
// depend on an upstream item's freshly-applied state.
func ApplyExec(ctx context.Context, in Input, current, goal state.States, dryRun bool) (*Result, state.States, error) {
	res := newResult()
	err := flow.Walk(ctx, in.Graph, flow.Forward, func(ctx context.Context, id item.Id) error {
		rt, ok := in.Registry.Get(id)
		if !ok {
			return fmt.Errorf("cmdblock: item %q not in registry", id)
		}
		in.Hub.Start(id, nil)

		p, perr := resolveParamsFull(rt, in.Resources)
		if perr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, perr)
			return perr
		}

		cur := current[id]
		gl := goal[id]

		diff, derr := rt.StateDiff(ctx, in.Resources, p, cur, gl)
		if derr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, derr)
			return derr
		}

		check, cerr := rt.ApplyCheck(ctx, in.Resources, p, cur, gl, diff)
		if cerr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, cerr)
			return cerr
		}
		if !check.Required() {
			in.Hub.Succeed(id)
			res.collateOK(id, cur)
			if ierr := rt.InsertState(in.Resources, cur); ierr != nil {
				return ierr
			}
			return nil
		}

		if limit, ok := check.ProgressLimit(); ok {
			in.Hub.Tick(id, 0, &limit)
		}

		var newState any
		var aerr error
		if dryRun {
			newState, aerr = rt.ApplyDry(ctx, in.Resources, p, cur, gl, diff, false)
		} else {
			newState, aerr = rt.Apply(ctx, in.Resources, p, cur, gl, diff, false)
		}
		if aerr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, aerr)
			return aerr
		}

		if ierr := rt.InsertState(in.Resources, newState); ierr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, ierr)
			return ierr
		}
		in.Hub.Succeed(id)
		res.collateOK(id, newState)
		return nil
	}, res.collateSkipped)

	if err != nil && !res.HasErrors() {
		return res, nil, err
	}
	states := make(state.States, len(res.Values))
	for id, v := range res.Values {
		states[id] = v
	}
	return res, states, nil
}

// Clean runs the item-level half of the clean command: reverse over
// in.Graph (successors before predecessors, spec's supplemented Clean
// feature). current is the fresh current-state snapshot from a preceding
// DiscoverCurrent pass (callers run that forward pass first so every
// item's TryStateCurrent/resources view is seeded before the reverse walk
// starts). For each item, StateClean's result is treated as the goal of a
// normal check-then-apply cycle: StateDiff against current, ApplyCheck,
// and only then Apply/ApplyDry with cleaning=true — exactly ApplyExec's
// shape, so StateClean itself never performs teardown directly.
func Clean(ctx context.Context, in Input, current state.States, dryRun bool) (*Result, state.States, error) {
	res := newResult()
	err := flow.Walk(ctx, in.Graph, flow.Reverse, func(ctx context.Context, id item.Id) error {
		rt, ok := in.Registry.Get(id)
		if !ok {
			return fmt.Errorf("cmdblock: item %q not in registry", id)
		}
		in.Hub.Start(id, nil)

		p, perr := resolveParamsFull(rt, in.Resources)
		if perr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, perr)
			return perr
		}

		cur := current[id]

		gl, gerr := rt.StateClean(ctx, in.Resources, p)
		if gerr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, gerr)
			return gerr
		}
		if gl == nil {
			in.Hub.Succeed(id)
			res.collateOK(id, cur)
			return nil
		}

		diff, derr := rt.StateDiff(ctx, in.Resources, p, cur, gl)
		if derr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, derr)
			return derr
		}

		check, cerr := rt.ApplyCheck(ctx, in.Resources, p, cur, gl, diff)
		if cerr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, cerr)
			return cerr
		}
		if !check.Required() {
			in.Hub.Succeed(id)
			res.collateOK(id, cur)
			if ierr := rt.InsertState(in.Resources, cur); ierr != nil {
				return ierr
			}
			return nil
		}

		if limit, ok := check.ProgressLimit(); ok {
			in.Hub.Tick(id, 0, &limit)
		}

		var newState any
		var aerr error
		if dryRun {
			newState, aerr = rt.ApplyDry(ctx, in.Resources, p, cur, gl, diff, true)
		} else {
			newState, aerr = rt.Apply(ctx, in.Resources, p, cur, gl, diff, true)
		}
		if aerr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, aerr)
			return aerr
		}

		if ierr := rt.InsertState(in.Resources, newState); ierr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, ierr)
			return ierr
		}
		in.Hub.Succeed(id)
		res.collateOK(id, newState)
		return nil
	}, res.collateSkipped)

	if err != nil && !res.HasErrors() {
		return res, nil, err
	}
	states := make(state.States, len(res.Values))
	for id, v := range res.Values {
		states[id] = v
	}
	return res, states, nil
}
