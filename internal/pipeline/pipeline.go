// Package pipeline implements the Pipeline (component G): the fixed,
// per-command sequence of cmdblock phases, threading a CmdOutcome through
// each and persisting the state artifacts each command is responsible
// for. Each exported function here is one command's pipeline; there is no
// shared Pipeline type holding a slice of heterogeneous blocks, since in
// Go a concrete function composing concretely-typed block calls is both
// simpler and exactly as reusable as the block functions it calls (spec
// §4.G's "ordered list of blocks" is realized as an ordered list of
// function calls).
package pipeline

import (
	"context"
	"time"

	"github.com/peaceflow/peace/internal/cmdblock"
	"github.com/peaceflow/peace/internal/outcome"
	"github.com/peaceflow/peace/internal/state"
)

// Paths collects the on-disk locations a pipeline reads and writes,
// derived from a flow's directory by the context builder (component I).
type Paths struct {
	FlowID          string
	FlowDir         string
	StatesCurrent   string
	StatesGoal      string
	ParamsSpecsFile string
}

func record(paths Paths, command string, status outcome.Status) error {
	return state.AppendHistory(paths.FlowDir, state.HistoryEntry{
		Time:    time.Now(),
		Command: command,
		Outcome: status.String(),
	})
}

// interrupted reports whether ctx was cancelled by the command's own
// interrupt signal (as opposed to a block-internal error), spec §4.J's
// ExecutionInterrupted variant.
func interrupted(ctx context.Context) bool {
	return ctx.Err() != nil
}

// blockInterrupted builds a BlockInterrupted outcome from a cmdblock
// Result, converting its []item.Id slices to the []string shape
// CmdOutcome uses.
func blockInterrupted[T any](res *cmdblock.Result, value T, blockIndex int) outcome.CmdOutcome[T] {
	return outcome.NewBlockInterrupted(value, blockIndex,
		toStrings(res.Failed), toStrings(res.Succeeded), res.Errors)
}

func toStrings[T ~string](ids []T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
