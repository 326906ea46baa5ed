// Package cmdblock implements the Command Block (component F): reusable
// per-phase execution over a flow graph — discover current, discover
// goal, read stored states, state-sync check, diff, and apply. Each block
// fetches typed input from the resource map, drives items concurrently
// via internal/flow's graph walker, collates per-item partials into a
// running accumulator, and publishes a final outcome back into the map —
// the four-method contract from spec §4.F, expressed here as a shared
// Result type plus one function per block rather than as a deep interface
// hierarchy (idiomatic with how the teacher structures its own per-phase
// provisioning loop in internal/provisioners/core.go's ProvisionResources).
package cmdblock

import (
	"fmt"
	"sync"

	"github.com/peaceflow/peace/internal/flow"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/progress"
	"github.com/peaceflow/peace/internal/resources"
	"github.com/peaceflow/peace/internal/state"
)

// Result is the OutcomeAcc/Outcome for every block in this package: a
// per-item value (state, diff, or nothing) plus a per-item error map. A
// non-empty Errors means the pipeline must short-circuit after this block
// (spec §4.G step 3).
type Result struct {
	mu sync.Mutex

	Values    map[item.Id]any
	Errors    map[string]error
	Succeeded []item.Id
	Failed    []item.Id
	// NotAttempted lists items that never became ready because a
	// predecessor failed (spec §4.F ApplyExecBlock: "descendants never
	// become ready and are reported as not-attempted").
	NotAttempted []item.Id
}

// newResult returns an empty, ready-to-collate Result.
func newResult() *Result {
	return &Result{
		Values: make(map[item.Id]any),
		Errors: make(map[string]error),
	}
}

// collateOK records a successful per-item outcome.
func (r *Result) collateOK(id item.Id, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Values[id] = value
	r.Succeeded = append(r.Succeeded, id)
}

// collateErr records a failed per-item outcome.
func (r *Result) collateErr(id item.Id, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors[string(id)] = err
	r.Failed = append(r.Failed, id)
}

// collateSkipped records an item that was never attempted because a
// predecessor failed.
func (r *Result) collateSkipped(id item.Id) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.NotAttempted = append(r.NotAttempted, id)
}

// HasErrors reports whether any item in this block failed.
func (r *Result) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors) > 0
}

// Input is the common resource-map input every block in this package
// fetches: the flow graph, the item registry, and the progress hub to
// report through. Concrete blocks additionally read whatever prior block
// outcome they depend on (e.g. ApplyExec reads the goal States produced
// by DiscoverGoal) directly as typed parameters rather than through the
// resource map, since Go's type system makes that the simpler and equally
// sound option here.
type Input struct {
	Graph     *flow.Graph
	Registry  *state.Registry
	Resources *resources.Map
	Hub       *progress.Hub
}

// resolveParamsFull resolves rt's params fully against res, wrapping failures
// as a per-item error rather than a block-wide one, matching spec §4.C:
// "Goal/Apply: params must resolve fully; failure is surfaced as an item
// error."
func resolveParamsFull(rt item.Rt, res *resources.Map) (any, error) {
	p, err := rt.ResolveFull(res)
	if err != nil {
		return nil, fmt.Errorf("resolve params: %w", err)
	}
	return p, nil
}

// resolveParamsTry resolves rt's params fully if possible, otherwise
// falls back to a partial resolution (spec §4.C: "failure converts to
// 'try' fallback (Partial) during discovery only"). ok reports whether
// even the partial is usable for a best-effort call.
func resolveParamsTry(rt item.Rt, res *resources.Map) (full any, partial any, ok bool) {
	p, err := rt.ResolveFull(res)
	if err == nil {
		return p, nil, true
	}
	part, complete, perr := rt.ResolvePartial(res)
	if perr != nil {
		return nil, nil, false
	}
	if complete {
		assembled, aerr := rt.AssembleFromPartial(part)
		if aerr == nil {
			return assembled, part, true
		}
	}
	return nil, part, true
}
