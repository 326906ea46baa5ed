package cmdblock

import (
	"context"
	"fmt"

	"github.com/peaceflow/peace/internal/flow"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/state"
)

// Diff runs DiffBlock: for every item, resolve params fully and compute
// StateDiff between two already-known States (current and goal, which may
// themselves come from two different profiles — spec's multi-profile diff
// supplemented feature). Diff never calls Apply/ApplyCheck and never
// mutates the resource map, so it is safe to run read-only and
// concurrently across the whole graph rather than needing topological
// order; it still walks forward so an item's MappingFn params can resolve
// against its predecessors' diffed state if it chooses to.
func Diff(ctx context.Context, in Input, current, goal state.States) (*Result, state.States, error) {
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
		d, derr := rt.StateDiff(ctx, in.Resources, p, current[id], goal[id])
		if derr != nil {
			in.Hub.Fail(id)
			res.collateErr(id, derr)
			return derr
		}
		in.Hub.Succeed(id)
		res.collateOK(id, d)
		return nil
	}, res.collateSkipped)

	if err != nil && !res.HasErrors() {
		return res, nil, err
	}
	diffs := make(state.States, len(res.Values))
	for id, v := range res.Values {
		diffs[id] = v
	}
	return res, diffs, nil
}
