package params

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/peaceflow/peace/internal/resources"
)

// StoredLookup gives the resolver access to the per-flow params_specs.yaml
// document: a raw, generically-decoded value per item id.
type StoredLookup interface {
	Lookup(itemID string) (raw any, ok bool)
}

// Resolver evaluates a Spec[P] against the live resource map, falling
// back to StoredLookup for Stored specs.
type Resolver struct {
	Stored StoredLookup
}

// NewResolver builds a Resolver backed by the given stored lookup. stored
// may be nil if no item in the flow uses a Stored spec.
func NewResolver(stored StoredLookup) *Resolver {
	return &Resolver{Stored: stored}
}

func decode[P any](raw any) (P, error) {
	var out P
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return out, err
	}
	return out, nil
}

// ResolveFull resolves spec fully against res, or returns a *Error. Used
// for the Goal/Apply phases, where a partial result is not acceptable
// (spec §4.C): "Resolution must resolve fully; failure is surfaced as an
// item error."
func ResolveFull[P any](r *Resolver, res *resources.Map, itemID string, spec Spec[P]) (P, error) {
	var zero P
	switch spec.kind {
	case kindValue:
		return spec.value, nil

	case kindInMemory:
		v, ok := resources.Get[P](res)
		if !ok {
			return zero, &Error{ItemHint: itemID, Reason: "no in-memory value present for this item's Params type"}
		}
		return v, nil

	case kindMappingFn:
		v, err := spec.mappingFn(res)
		if err != nil {
			return zero, &Error{ItemHint: itemID, Reason: "mapping function failed", Cause: err}
		}
		return v, nil

	case kindFieldWise:
		resolved := make(map[string]any, len(spec.fields))
		for name, fs := range spec.fields {
			v, ok, err := fs.Resolve(res)
			if err != nil {
				return zero, &Error{ItemHint: itemID, Field: name, Reason: "field resolution failed", Cause: err}
			}
			if !ok {
				return zero, &Error{ItemHint: itemID, Field: name, Reason: "field not yet resolvable"}
			}
			resolved[name] = v
		}
		v, err := spec.assemble(resolved)
		if err != nil {
			return zero, &Error{ItemHint: itemID, Reason: "failed to assemble params from fields", Cause: err}
		}
		return v, nil

	case kindStored:
		if r == nil || r.Stored == nil {
			return zero, &Error{ItemHint: itemID, Reason: "no stored params_specs available"}
		}
		raw, ok := r.Stored.Lookup(itemID)
		if !ok {
			return zero, &Error{ItemHint: itemID, Reason: "no stored spec for this item"}
		}
		v, err := decode[P](raw)
		if err != nil {
			return zero, &Error{ItemHint: itemID, Reason: "failed to decode stored params", Cause: err}
		}
		return v, nil

	default:
		return zero, &Error{ItemHint: itemID, Reason: fmt.Sprintf("unknown spec kind %d", spec.kind)}
	}
}

// Partial holds whatever fields of P could be resolved, keyed by field
// name for FieldWise specs, or a single "_value" entry for every other
// kind. It is used by the discovery-phase "try" fallback: when ResolveFull
// fails, callers may fall back to ResolvePartial to make best-effort
// progress (e.g. an item's TryStateCurrent during the clean path).
type Partial[P any] struct {
	Fields map[string]any
	// Complete is true if every field resolved (equivalent to a full P
	// being obtainable, just not yet assembled into one).
	Complete bool
}

// ResolvePartial resolves as much of spec as currently possible without
// failing when something is missing. For FieldWise specs it skips fields
// that are not yet resolvable and returns an error only when a field's
// resolution function itself fails; assemble is not run here (see
// Assemble). For every other kind it calls ResolveFull, and any failure
// there, a MappingFn error included, yields an empty, incomplete Partial
// and no error.
func ResolvePartial[P any](r *Resolver, res *resources.Map, itemID string, spec Spec[P]) (Partial[P], error) {
	switch spec.kind {
	case kindFieldWise:
		resolved := make(map[string]any, len(spec.fields))
		complete := true
		for name, fs := range spec.fields {
			v, ok, err := fs.Resolve(res)
			if err != nil {
				return Partial[P]{}, &Error{ItemHint: itemID, Field: name, Reason: "field resolution failed", Cause: err}
			}
			if !ok {
				complete = false
				continue
			}
			resolved[name] = v
		}
		return Partial[P]{Fields: resolved, Complete: complete}, nil

	default:
		v, err := ResolveFull(r, res, itemID, spec)
		if err != nil {
			return Partial[P]{Fields: map[string]any{}, Complete: false}, nil
		}
		return Partial[P]{Fields: map[string]any{"_value": v}, Complete: true}, nil
	}
}

// Assemble runs spec's assemble function over a Partial that has become
// Complete, typically after enough of the DAG has executed that every
// FieldWise dependency now resolves. It is an error to call this on an
// incomplete Partial.
func (s Spec[P]) Assemble(p Partial[P]) (P, error) {
	var zero P
	if s.kind != kindFieldWise {
		if v, ok := p.Fields["_value"]; ok {
			return v.(P), nil
		}
		return zero, fmt.Errorf("params: Assemble called on non-FieldWise, non-value partial")
	}
	if !p.Complete {
		return zero, fmt.Errorf("params: Assemble called on incomplete partial")
	}
	return s.assemble(p.Fields)
}
