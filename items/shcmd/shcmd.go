// Package shcmd implements an item whose current/goal/diff/apply/clean
// behavior is each delegated to a separate shell command, the Go
// analogue of the source framework's sh_cmd item spec
// (original_source/item_specs/sh_cmd). DiffCmd receives the current and
// goal commands' stdout as its last two arguments, mirroring
// ShCmdStateDiffFnSpec's "append state_current/state_desired stdout as
// args" pattern; the other commands run with their own arguments only.
// Execution itself is grounded in the teacher's command
// provisioner (internal/provisioners/cmdprov/commandprov.go).
package shcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/resources"
)

// Params names the five commands this item may run. A nil CleanCmd means
// "nothing to clean"; any other nil field means that phase is skipped
// (ApplyCheck treats a nil DiffCmd result as "no diff computable" rather
// than an error).
type Params struct {
	CurrentCmd []string `yaml:"current_cmd"`
	GoalCmd    []string `yaml:"goal_cmd"`
	DiffCmd    []string `yaml:"diff_cmd,omitempty"`
	ApplyCmd   []string `yaml:"apply_cmd"`
	CleanCmd   []string `yaml:"clean_cmd,omitempty"`
}

// State is the captured output of whichever command produced it.
type State struct {
	Stdout string
	Stderr string
}

// StateDiff is the captured output of DiffCmd, run with current's and
// goal's stdout appended as the last two arguments.
type StateDiff struct {
	Stdout string
	Stderr string
}

// Spec implements item.Spec[Params, State, StateDiff].
type Spec struct {
	id item.Id
}

// New returns a shcmd item with the given id.
func New(id item.Id) *Spec { return &Spec{id: id} }

func (s *Spec) Id() item.Id                     { return s.id }
func (s *Spec) Setup(_ *resources.Map) error     { return nil }
func (s *Spec) Data() item.BorrowSet             { return item.BorrowSet{} }

func run(ctx context.Context, argv []string, extra ...string) (*State, error) {
	if len(argv) == 0 {
		return nil, nil
	}
	args := append(append([]string{}, argv[1:]...), extra...)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("shcmd: %v: %w (stderr: %s)", argv, err, stderr.String())
	}
	return &State{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (s *Spec) StateCurrent(ctx context.Context, p Params, _ *resources.Map) (*State, error) {
	return run(ctx, p.CurrentCmd)
}

func (s *Spec) StateGoal(ctx context.Context, p Params, _ *resources.Map) (*State, error) {
	return run(ctx, p.GoalCmd)
}

func (s *Spec) StateDiff(ctx context.Context, p Params, _ *resources.Map, current, goal *State) (*StateDiff, error) {
	if len(p.DiffCmd) == 0 {
		return nil, nil
	}
	var curOut, goalOut string
	if current != nil {
		curOut = current.Stdout
	}
	if goal != nil {
		goalOut = goal.Stdout
	}
	st, err := run(ctx, p.DiffCmd, curOut, goalOut)
	if err != nil || st == nil {
		return nil, err
	}
	return &StateDiff{Stdout: st.Stdout, Stderr: st.Stderr}, nil
}

func (s *Spec) ApplyCheck(_ context.Context, _ Params, _ *resources.Map, current, goal *State, diff *StateDiff) (item.ApplyCheck, error) {
	if diff != nil {
		if diff.Stdout == "" && diff.Stderr == "" {
			return item.ExecNotRequired(), nil
		}
		return item.ExecRequired(nil), nil
	}
	var curOut, goalOut string
	if current != nil {
		curOut = current.Stdout
	}
	if goal != nil {
		goalOut = goal.Stdout
	}
	if curOut == goalOut {
		return item.ExecNotRequired(), nil
	}
	return item.ExecRequired(nil), nil
}

// Apply runs ApplyCmd to converge towards goal, or CleanCmd when cleaning
// is true (the clean command's reverse pass).
func (s *Spec) Apply(ctx context.Context, p Params, _ *resources.Map, _, goal *State, _ *StateDiff, cleaning bool) (State, error) {
	argv := p.ApplyCmd
	if cleaning {
		argv = p.CleanCmd
	}
	st, err := run(ctx, argv)
	if err != nil {
		return State{}, err
	}
	if st != nil {
		return *st, nil
	}
	if goal != nil {
		return *goal, nil
	}
	return State{}, nil
}

func (s *Spec) ApplyDry(_ context.Context, _ Params, _ *resources.Map, _, goal *State, _ *StateDiff, _ bool) (State, error) {
	if goal != nil {
		return *goal, nil
	}
	return State{}, nil
}

// StateClean reports the goal state of a cleaned item: an empty State
// when CleanCmd is configured, or nil ("nothing to clean") otherwise.
// Running CleanCmd itself happens in Apply, gated by ApplyCheck.
func (s *Spec) StateClean(_ context.Context, p Params, _ *resources.Map) (*State, error) {
	if len(p.CleanCmd) == 0 {
		return nil, nil
	}
	return &State{}, nil
}

func (s *Spec) TryStateCurrent(ctx context.Context, p *Params, res *resources.Map) (*State, error) {
	if p == nil {
		return nil, nil
	}
	return s.StateCurrent(ctx, *p, res)
}

// Rt builds the type-erased adapter, taking spec as a FieldWise or Stored
// variant is the flow definition's choice; most deployments read shcmd's
// command lists from params_specs.yaml, so Stored is the common case.
func (s *Spec) Rt(resolver *params.Resolver, pspec params.Spec[Params]) item.Rt {
	return item.New[Params, State, StateDiff](s, resolver, pspec)
}
