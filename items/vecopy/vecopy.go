// Package vecopy implements the simplest possible item: copying a slice
// of bytes from a source location in the resource map to a destination
// location. It exists to exercise the engine end to end (discover/diff/
// apply over a trivial, side-effect-free item) the same way the source
// framework's examples/vec_copy crate does, without any external system.
package vecopy

import (
	"bytes"
	"context"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/resources"
)

// Src and Dest are the resource-map types vecopy reads/writes, kept as
// named []byte so they don't collide with any other item's occupant of
// the same underlying type.
type Src []byte
type Dest []byte

// Params names nothing beyond the item id; vecopy always copies whatever
// Src currently holds, discovered fresh from the resource map on each
// state computation rather than carried in Params.
type Params struct{}

// State is a copy of the bytes, at either the source or destination
// location depending on which method produced it.
type State struct {
	Bytes []byte
}

// StateDiff reports whether Dest's bytes differ from Src's.
type StateDiff struct {
	Differs bool
}

// Spec implements item.Spec[Params, State, StateDiff].
type Spec struct {
	id item.Id
}

// New returns a vecopy item with the given id.
func New(id item.Id) *Spec { return &Spec{id: id} }

func (s *Spec) Id() item.Id { return s.id }

func (s *Spec) Setup(res *resources.Map) error {
	if !resources.Contains[Src](res) {
		resources.Insert[Src](res, Src{})
	}
	if !resources.Contains[Dest](res) {
		resources.Insert[Dest](res, Dest{})
	}
	return nil
}

func (s *Spec) Data() item.BorrowSet {
	return item.BorrowSet{Reads: []string{"vecopy.Src"}, Writes: []string{"vecopy.Dest"}}
}

func (s *Spec) StateCurrent(_ context.Context, _ Params, res *resources.Map) (*State, error) {
	dest, _ := resources.Get[Dest](res)
	if dest == nil {
		return nil, nil
	}
	return &State{Bytes: append([]byte(nil), dest...)}, nil
}

func (s *Spec) StateGoal(_ context.Context, _ Params, res *resources.Map) (*State, error) {
	src, _ := resources.Get[Src](res)
	return &State{Bytes: append([]byte(nil), src...)}, nil
}

func (s *Spec) StateDiff(_ context.Context, _ Params, _ *resources.Map, current, goal *State) (*StateDiff, error) {
	var cur, gl []byte
	if current != nil {
		cur = current.Bytes
	}
	if goal != nil {
		gl = goal.Bytes
	}
	return &StateDiff{Differs: !bytes.Equal(cur, gl)}, nil
}

func (s *Spec) ApplyCheck(_ context.Context, _ Params, _ *resources.Map, _, _ *State, diff *StateDiff) (item.ApplyCheck, error) {
	if diff != nil && diff.Differs {
		return item.ExecRequired(nil), nil
	}
	return item.ExecNotRequired(), nil
}

func (s *Spec) Apply(_ context.Context, _ Params, res *resources.Map, _, goal *State, _ *StateDiff, _ bool) (State, error) {
	var b []byte
	if goal != nil {
		b = goal.Bytes
	}
	resources.Insert[Dest](res, Dest(b))
	return State{Bytes: append([]byte(nil), b...)}, nil
}

func (s *Spec) ApplyDry(_ context.Context, _ Params, _ *resources.Map, _, goal *State, _ *StateDiff, _ bool) (State, error) {
	var b []byte
	if goal != nil {
		b = goal.Bytes
	}
	return State{Bytes: append([]byte(nil), b...)}, nil
}

// StateClean reports the goal state of a torn-down vecopy: an empty
// Dest. The reverse clean pass diffs this against current and calls
// Apply (which performs the actual write) only when they differ.
func (s *Spec) StateClean(_ context.Context, _ Params, _ *resources.Map) (*State, error) {
	return &State{}, nil
}

func (s *Spec) TryStateCurrent(ctx context.Context, p *Params, res *resources.Map) (*State, error) {
	var pp Params
	if p != nil {
		pp = *p
	}
	return s.StateCurrent(ctx, pp, res)
}

// Rt builds the type-erased adapter for this item, always using Value
// params since vecopy takes none.
func (s *Spec) Rt(resolver *params.Resolver) item.Rt {
	return item.New[Params, State, StateDiff](s, resolver, params.Value(Params{}))
}
