package cmdblock

import (
	"context"
	"reflect"

	"github.com/peaceflow/peace/internal/state"
)

// SyncCheckMode selects which stored snapshots ApplyStateSyncCheckBlock
// re-verifies before an apply proceeds (spec §4.F/§4.G): None skips the
// check entirely, Current/Goal re-discover just that one side, and Both
// re-discovers and compares both.
type SyncCheckMode int

const (
	SyncCheckNone SyncCheckMode = iota
	SyncCheckCurrent
	SyncCheckGoal
	SyncCheckBoth
)

// StateSyncCheck runs ApplyStateSyncCheckBlock: depending on mode,
// re-discovers current and/or goal state exactly like
// StatesDiscoverCurrentBlock/StatesDiscoverGoalBlock, then compares the
// fresh discovery against the stored snapshot read earlier in the same
// command, so apply never acts against stale data (spec §8 invariant 3:
// "apply must never run against out-of-sync state"). Any item whose
// freshly discovered state differs from stored is collected; this
// function only identifies the mismatched ids, leaving
// errs.StatesSyncMismatch construction to the caller.
func StateSyncCheck(ctx context.Context, in Input, mode SyncCheckMode, storedCurrent, storedGoal state.States) (res *Result, freshCurrent, freshGoal state.States, mismatched []string, err error) {
	if mode == SyncCheckNone {
		return newResult(), storedCurrent, storedGoal, nil, nil
	}

	res = newResult()
	freshCurrent = storedCurrent
	freshGoal = storedGoal

	if mode == SyncCheckCurrent || mode == SyncCheckBoth {
		curRes, fresh, derr := DiscoverCurrent(ctx, in)
		mergeResults(res, curRes)
		if derr != nil && !curRes.HasErrors() {
			return res, nil, nil, nil, derr
		}
		if curRes.HasErrors() {
			return res, fresh, storedGoal, nil, nil
		}
		freshCurrent = fresh
		mismatched = append(mismatched, diffItems(fresh, storedCurrent)...)
	}

	if mode == SyncCheckGoal || mode == SyncCheckBoth {
		goalRes, fresh, derr := DiscoverGoal(ctx, in)
		mergeResults(res, goalRes)
		if derr != nil && !goalRes.HasErrors() {
			return res, freshCurrent, nil, nil, derr
		}
		if goalRes.HasErrors() {
			return res, freshCurrent, fresh, nil, nil
		}
		freshGoal = fresh
		mismatched = append(mismatched, diffItems(fresh, storedGoal)...)
	}

	return res, freshCurrent, freshGoal, dedupe(mismatched), nil
}

// diffItems reports the ids whose fresh value disagrees with the stored
// one, plus ids present only on one side.
func diffItems(fresh, stored state.States) []string {
	var mismatched []string
	for id, freshVal := range fresh {
		storedVal, hadStored := stored[id]
		if !hadStored {
			if freshVal != nil {
				mismatched = append(mismatched, string(id))
			}
			continue
		}
		if !statesEqual(freshVal, storedVal) {
			mismatched = append(mismatched, string(id))
		}
	}
	for id := range stored {
		if _, inFresh := fresh[id]; !inFresh {
			mismatched = append(mismatched, string(id))
		}
	}
	return mismatched
}

// dedupe removes duplicate ids, preserving first-seen order, so an item
// flagged by both the current and goal comparisons in SyncCheckBoth is
// only reported once.
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// mergeResults folds src's per-item outcomes into dst, used to combine the
// current- and goal-discovery sub-passes of SyncCheckBoth into a single
// Result the caller can check HasErrors on.
func mergeResults(dst, src *Result) {
	for id, v := range src.Values {
		dst.Values[id] = v
	}
	for id, e := range src.Errors {
		dst.Errors[id] = e
	}
	dst.Succeeded = append(dst.Succeeded, src.Succeeded...)
	dst.Failed = append(dst.Failed, src.Failed...)
	dst.NotAttempted = append(dst.NotAttempted, src.NotAttempted...)
}

// statesEqual compares two decoded state values structurally.
// reflect.DeepEqual also compares slice and map fields element by element,
// so state types holding a []byte (such as vecopy.State) compare by content.
func statesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
