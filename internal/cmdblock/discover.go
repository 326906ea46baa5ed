package cmdblock

import (
	"context"
	"fmt"

	"github.com/peaceflow/peace/internal/flow"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/state"
)

// DiscoverCurrent runs StatesDiscoverCurrentBlock: for every item, forward
// over in.Graph, resolve params ("try" fallback per spec §4.C) and call
// StateCurrent, inserting each item's state back into the resource map so
// dependents observe it via InMemory/MappingFn params before they run.
func DiscoverCurrent(ctx context.Context, in Input) (*Result, state.States, error) {
	res := newResult()
	err := flow.Walk(ctx, in.Graph, flow.Forward, func(ctx context.Context, id item.Id) error {
		rt, ok := in.Registry.Get(id)
		if !ok {
			return fmt.Errorf("cmdblock: item %q not in registry", id)
		}
		in.Hub.Start(id, nil)
		full, partial, ok := resolveParamsTry(rt, in.Resources)
		if !ok {
			err := fmt.Errorf("cmdblock: %s: params did not resolve even partially", id)
			in.Hub.Fail(id)
			res.collateErr(id, err)
			return err
		}
		var s any
		var serr error
		if full != nil {
			s, serr = rt.StateCurrent(ctx, in.Resources, full)
		} else {
			s, serr = rt.TryStateCurrent(ctx, in.Resources, partial)
		}
		if serr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, serr)
			return serr
		}
		if ierr := rt.InsertState(in.Resources, s); ierr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, ierr)
			return ierr
		}
		in.Hub.Succeed(id)
		res.collateOK(id, s)
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

// DiscoverGoal runs StatesDiscoverGoalBlock: identical shape to
// DiscoverCurrent but calls StateGoal and requires full param resolution
// (spec §4.C: goal/apply params must resolve fully).
func DiscoverGoal(ctx context.Context, in Input) (*Result, state.States, error) {
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
		s, serr := rt.StateGoal(ctx, in.Resources, p)
		if serr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, serr)
			return serr
		}
		if ierr := rt.InsertState(in.Resources, s); ierr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, ierr)
			return ierr
		}
		in.Hub.Succeed(id)
		res.collateOK(id, s)
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
