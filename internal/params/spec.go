// Package params implements the Params & Spec Resolver (component C): a
// recursive description of how to obtain an item's typed Params, and the
// resolver that evaluates that description against the live resource map
// or the per-flow stored params_specs.yaml.
package params

import (
	"fmt"

	"github.com/peaceflow/peace/internal/resources"
)

type kind int

const (
	kindValue kind = iota
	kindInMemory
	kindMappingFn
	kindFieldWise
	kindStored
)

// Spec describes how to obtain a P. It is the Go analogue of the source
// framework's ParamsSpec<P> recursive enum.
type Spec[P any] struct {
	kind     kind
	value    P
	mapKeys  []string
	mappingFn func(res *resources.Map) (P, error)
	fields    map[string]FieldSpec
	assemble  func(fields map[string]any) (P, error)
}

// Value wraps a literal P.
func Value[P any](p P) Spec[P] {
	return Spec[P]{kind: kindValue, value: p}
}

// InMemory resolves P by taking it directly from the resource map at its
// own type.
func InMemory[P any]() Spec[P] {
	return Spec[P]{kind: kindInMemory}
}

// MappingFn computes P from whatever is currently present in the resource
// map. mapKeys names the types fn depends on; it is stored on the Spec but
// the resolver does not check it, so a missing type shows up only as an
// error from fn. fn itself does the actual lookup via the typed resources
// helpers and is expected to only use types named in mapKeys.
func MappingFn[P any](mapKeys []string, fn func(res *resources.Map) (P, error)) Spec[P] {
	return Spec[P]{kind: kindMappingFn, mapKeys: mapKeys, mappingFn: fn}
}

// FieldWise composes P from independently resolved fields. Each entry in
// fields is resolved on its own; assemble receives the resolved values
// keyed by the same field name and builds the final P. If any field fails
// to resolve, FieldWise resolution fails (see ResolveFull) or yields a
// Partial (see ResolvePartial).
func FieldWise[P any](fields map[string]FieldSpec, assemble func(map[string]any) (P, error)) Spec[P] {
	return Spec[P]{kind: kindFieldWise, fields: fields, assemble: assemble}
}

// Stored marks P as loaded from the per-flow params_specs.yaml rather than
// provided this run.
func Stored[P any]() Spec[P] {
	return Spec[P]{kind: kindStored}
}

// Kind string, for error messages and the type registry.
func (s Spec[P]) Kind() string {
	switch s.kind {
	case kindValue:
		return "value"
	case kindInMemory:
		return "in_memory"
	case kindMappingFn:
		return "mapping_fn"
	case kindFieldWise:
		return "field_wise"
	case kindStored:
		return "stored"
	default:
		return "unknown"
	}
}

// FieldSpec is the type-erased per-field resolution used by FieldWise,
// analogous to ValueSpec<F> in the source spec but without Go generics
// getting in the way of heterogeneous field types within one struct.
type FieldSpec interface {
	// Resolve attempts to produce the field's value from res. ok is false
	// if the field cannot yet be resolved (e.g. InMemory field absent).
	Resolve(res *resources.Map) (value any, ok bool, err error)
}

type valueField struct{ v any }

func (f valueField) Resolve(_ *resources.Map) (any, bool, error) { return f.v, true, nil }

// ValueField wraps a literal field value.
func ValueField[F any](v F) FieldSpec { return valueField{v: v} }

type inMemoryField[F any] struct{}

func (f inMemoryField[F]) Resolve(res *resources.Map) (any, bool, error) {
	v, ok := resources.Get[F](res)
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

// InMemoryField resolves a field by taking it from the resource map at
// type F.
func InMemoryField[F any]() FieldSpec { return inMemoryField[F]{} }

type mappingField struct {
	keys []string
	fn   func(res *resources.Map) (any, bool, error)
}

func (f mappingField) Resolve(res *resources.Map) (any, bool, error) { return f.fn(res) }

// MappingField computes a field from the resource map via fn.
func MappingField(keys []string, fn func(res *resources.Map) (any, bool, error)) FieldSpec {
	return mappingField{keys: keys, fn: fn}
}

// Error is a ParamsResolveError: a field or whole Params could not be
// resolved.
type Error struct {
	ItemHint string
	Field    string
	Reason   string
	Cause    error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("params: failed to resolve field %q for %s: %s", e.Field, e.ItemHint, e.Reason)
	}
	return fmt.Sprintf("params: failed to resolve params for %s: %s", e.ItemHint, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }
