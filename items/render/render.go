// Package render implements an item that renders a Go text/template (with
// sprig functions available, matching the teacher's template provisioner
// at internal/provisioners/templateprov/template.go) against a set of
// vars, writing the result to a destination file.
package render

import (
	"bytes"
	"context"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/resources"
)

// Params names the template source, the vars it renders against, and the
// destination file.
type Params struct {
	Template string         `yaml:"template"`
	Vars     map[string]any `yaml:"vars,omitempty"`
	Dest     string         `yaml:"dest"`
}

// State is the destination file's current contents.
type State struct {
	Contents string
}

// StateDiff reports whether rendering Template against Vars would produce
// different contents than what's currently at Dest.
type StateDiff struct {
	Differs bool
}

// Spec implements item.Spec[Params, State, StateDiff].
type Spec struct {
	id item.Id
}

// New returns a render item with the given id.
func New(id item.Id) *Spec { return &Spec{id: id} }

func (s *Spec) Id() item.Id                 { return s.id }
func (s *Spec) Setup(_ *resources.Map) error { return nil }
func (s *Spec) Data() item.BorrowSet         { return item.BorrowSet{} }

func (s *Spec) StateCurrent(_ context.Context, p Params, _ *resources.Map) (*State, error) {
	b, err := os.ReadFile(p.Dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &State{Contents: string(b)}, nil
}

func renderTemplate(p Params) (string, error) {
	tmpl, err := template.New(p.Dest).Funcs(sprig.FuncMap()).Parse(p.Template)
	if err != nil {
		return "", err
	}
	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, p.Vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Spec) StateGoal(_ context.Context, p Params, _ *resources.Map) (*State, error) {
	rendered, err := renderTemplate(p)
	if err != nil {
		return nil, err
	}
	return &State{Contents: rendered}, nil
}

func (s *Spec) StateDiff(_ context.Context, _ Params, _ *resources.Map, current, goal *State) (*StateDiff, error) {
	var cur, gl string
	if current != nil {
		cur = current.Contents
	}
	if goal != nil {
		gl = goal.Contents
	}
	return &StateDiff{Differs: cur != gl}, nil
}

func (s *Spec) ApplyCheck(_ context.Context, _ Params, _ *resources.Map, _, _ *State, diff *StateDiff) (item.ApplyCheck, error) {
	if diff != nil && diff.Differs {
		return item.ExecRequired(nil), nil
	}
	return item.ExecNotRequired(), nil
}

func (s *Spec) Apply(_ context.Context, p Params, _ *resources.Map, _, goal *State, _ *StateDiff, cleaning bool) (State, error) {
	if cleaning {
		if err := os.Remove(p.Dest); err != nil && !os.IsNotExist(err) {
			return State{}, err
		}
		return State{}, nil
	}
	var contents string
	if goal != nil {
		contents = goal.Contents
	}
	if err := os.WriteFile(p.Dest, []byte(contents), 0o644); err != nil {
		return State{}, err
	}
	return State{Contents: contents}, nil
}

func (s *Spec) ApplyDry(_ context.Context, _ Params, _ *resources.Map, _, goal *State, _ *StateDiff, _ bool) (State, error) {
	if goal != nil {
		return *goal, nil
	}
	return State{}, nil
}

// StateClean reports the goal state of a cleaned render: an absent
// file. The actual os.Remove happens in Apply, gated by ApplyCheck.
func (s *Spec) StateClean(_ context.Context, _ Params, _ *resources.Map) (*State, error) {
	return &State{}, nil
}

func (s *Spec) TryStateCurrent(ctx context.Context, p *Params, res *resources.Map) (*State, error) {
	if p == nil {
		return nil, nil
	}
	return s.StateCurrent(ctx, *p, res)
}

// Rt builds the type-erased adapter.
func (s *Spec) Rt(resolver *params.Resolver, pspec params.Spec[Params]) item.Rt {
	return item.New[Params, State, StateDiff](s, resolver, pspec)
}
