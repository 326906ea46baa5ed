// Package output implements the pluggable OutputWriter every command runs
// against (progress_begin/progress_update/progress_end/present/write_err),
// adapted from the teacher's OutputFormatter family
// (internal/util/output_format.go) into a single streaming interface that
// also drains an internal/progress Hub.
package output

import (
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/progress"
)

// Writer is the OutputWriter contract: progress lifecycle callbacks plus a
// final structured Present of a command's CmdOutcome-shaped result.
type Writer interface {
	ProgressBegin(ids []item.Id)
	ProgressUpdate(u progress.Update)
	ProgressEnd()
	Present(format Format, data any) error
	WriteErr(err error)
}

// Format selects how Present renders data, mirroring the teacher's
// Display() family (JSONOutputFormatter/YAMLOutputFormatter/
// TableOutputFormatter in internal/util/output_format.go).
type Format int

const (
	FormatTable Format = iota
	FormatJSON
	FormatYAML
)

// Drain reads every update off hub until it's closed, forwarding each to
// w. Intended to run in its own goroutine started right before a pipeline
// runs, with hub.Close() called once the pipeline returns.
func Drain(w Writer, hub *progress.Hub) {
	for u := range hub.Updates() {
		w.ProgressUpdate(u)
	}
}

// NoOp is a Writer that discards everything, used by non-interactive
// callers (e.g. library embedding, tests) that want a command's pipeline
// to run without any console output.
type NoOp struct{}

func (NoOp) ProgressBegin(_ []item.Id)        {}
func (NoOp) ProgressUpdate(_ progress.Update) {}
func (NoOp) ProgressEnd()                     {}
func (NoOp) Present(_ Format, _ any) error    { return nil }
func (NoOp) WriteErr(_ error)                 {}
