package item

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/resources"
)

// Rt is the type-erased ("boxed") item contract the engine actually
// drives: a flow graph holds a []Rt, never a []Spec[P,S,D], since
// different items have different Params/State/StateDiff types. New
// builds the Rt adapter for one typed Spec, mirroring the source
// framework's FullSpecRt -> FullSpecBoxed erasure
// (crate/rt_model/src/full_spec_boxed.rs).
//
// Every method that would naturally take/return P, S or D instead takes
///returns `any`; the adapter type-asserts internally. This is sound
// because the adapter is the only thing that constructs these values for
// its own item, and the engine only ever round-trips values it got back
// from the same adapter.
type Rt interface {
	Id() Id
	Setup(res *resources.Map) error
	Data() BorrowSet

	// ResolveFull resolves this item's params fully against res, or
	// returns a *params.Error. The returned value is the concrete P
	// boxed in an any.
	ResolveFull(res *resources.Map) (any, error)

	// ResolvePartial resolves as much of this item's params as currently
	// possible, returning an opaque partial handle. complete reports
	// whether every part resolved (equivalent to ResolveFull succeeding).
	ResolvePartial(res *resources.Map) (partial any, complete bool, err error)

	// AssembleFromPartial turns a (now-complete) partial handle from
	// ResolvePartial into the concrete P, boxed in an any.
	AssembleFromPartial(partial any) (any, error)

	StateCurrent(ctx context.Context, res *resources.Map, p any) (any, error)
	StateGoal(ctx context.Context, res *resources.Map, p any) (any, error)
	StateDiff(ctx context.Context, res *resources.Map, p any, current, goal any) (any, error)
	ApplyCheck(ctx context.Context, res *resources.Map, p any, current, goal, diff any) (ApplyCheck, error)
	Apply(ctx context.Context, res *resources.Map, p any, current, goal, diff any, cleaning bool) (any, error)
	ApplyDry(ctx context.Context, res *resources.Map, p any, current, goal, diff any, cleaning bool) (any, error)
	StateClean(ctx context.Context, res *resources.Map, p any) (any, error)
	TryStateCurrent(ctx context.Context, res *resources.Map, partialParams any) (any, error)

	// InsertState writes a (possibly nil) state produced for this item
	// into res under this item's State type, so successors resolving
	// InMemory/MappingFn params observe it. It is a no-op if state is nil.
	InsertState(res *resources.Map, state any) error

	// DecodeState decodes a generically-unmarshalled YAML value (as
	// produced by the state store reading states_current.yaml/
	// states_goal.yaml) into this item's concrete State type, boxed in
	// an any. A nil raw decodes to a nil any.
	DecodeState(raw any) (any, error)
}

type rt[P any, S any, D any] struct {
	spec     Spec[P, S, D]
	resolver *params.Resolver
	pspec    params.Spec[P]
}

// New builds the type-erased Rt adapter for a typed Spec plus the
// ParamsSpec that governs how its Params are obtained.
func New[P any, S any, D any](spec Spec[P, S, D], resolver *params.Resolver, pspec params.Spec[P]) Rt {
	return &rt[P, S, D]{spec: spec, resolver: resolver, pspec: pspec}
}

func (r *rt[P, S, D]) Id() Id               { return r.spec.Id() }
func (r *rt[P, S, D]) Setup(res *resources.Map) error { return r.spec.Setup(res) }
func (r *rt[P, S, D]) Data() BorrowSet       { return r.spec.Data() }

func (r *rt[P, S, D]) ResolveFull(res *resources.Map) (any, error) {
	p, err := params.ResolveFull[P](r.resolver, res, string(r.spec.Id()), r.pspec)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *rt[P, S, D]) ResolvePartial(res *resources.Map) (any, bool, error) {
	partial, err := params.ResolvePartial[P](r.resolver, res, string(r.spec.Id()), r.pspec)
	if err != nil {
		return nil, false, err
	}
	return partial, partial.Complete, nil
}

func (r *rt[P, S, D]) AssembleFromPartial(partial any) (any, error) {
	pp, ok := partial.(params.Partial[P])
	if !ok {
		return nil, fmt.Errorf("item: AssembleFromPartial got wrong partial type for %s", r.spec.Id())
	}
	p, err := r.pspec.Assemble(pp)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *rt[P, S, D]) unboxP(p any) (P, error) {
	var zero P
	if p == nil {
		return zero, fmt.Errorf("item: %s: nil params where %T expected", r.spec.Id(), zero)
	}
	v, ok := p.(P)
	if !ok {
		return zero, fmt.Errorf("item: %s: params type mismatch: got %T", r.spec.Id(), p)
	}
	return v, nil
}

func unbox[T any](v any, itemID Id) (*T, error) {
	if v == nil {
		return nil, nil
	}
	t, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("item: %s: state/diff type mismatch: got %T, want %T", itemID, v, t)
	}
	return &t, nil
}

func (r *rt[P, S, D]) StateCurrent(ctx context.Context, res *resources.Map, p any) (any, error) {
	pp, err := r.unboxP(p)
	if err != nil {
		return nil, err
	}
	s, err := r.spec.StateCurrent(ctx, pp, res)
	if err != nil || s == nil {
		return nil, err
	}
	return *s, nil
}

func (r *rt[P, S, D]) StateGoal(ctx context.Context, res *resources.Map, p any) (any, error) {
	pp, err := r.unboxP(p)
	if err != nil {
		return nil, err
	}
	s, err := r.spec.StateGoal(ctx, pp, res)
	if err != nil || s == nil {
		return nil, err
	}
	return *s, nil
}

func (r *rt[P, S, D]) StateDiff(ctx context.Context, res *resources.Map, p any, current, goal any) (any, error) {
	pp, err := r.unboxP(p)
	if err != nil {
		return nil, err
	}
	cur, err := unbox[S](current, r.spec.Id())
	if err != nil {
		return nil, err
	}
	gl, err := unbox[S](goal, r.spec.Id())
	if err != nil {
		return nil, err
	}
	d, err := r.spec.StateDiff(ctx, pp, res, cur, gl)
	if err != nil || d == nil {
		return nil, err
	}
	return *d, nil
}

func (r *rt[P, S, D]) ApplyCheck(ctx context.Context, res *resources.Map, p any, current, goal, diff any) (ApplyCheck, error) {
	pp, err := r.unboxP(p)
	if err != nil {
		return ApplyCheck{}, err
	}
	cur, err := unbox[S](current, r.spec.Id())
	if err != nil {
		return ApplyCheck{}, err
	}
	gl, err := unbox[S](goal, r.spec.Id())
	if err != nil {
		return ApplyCheck{}, err
	}
	df, err := unbox[D](diff, r.spec.Id())
	if err != nil {
		return ApplyCheck{}, err
	}
	return r.spec.ApplyCheck(ctx, pp, res, cur, gl, df)
}

func (r *rt[P, S, D]) Apply(ctx context.Context, res *resources.Map, p any, current, goal, diff any, cleaning bool) (any, error) {
	pp, err := r.unboxP(p)
	if err != nil {
		return nil, err
	}
	cur, err := unbox[S](current, r.spec.Id())
	if err != nil {
		return nil, err
	}
	gl, err := unbox[S](goal, r.spec.Id())
	if err != nil {
		return nil, err
	}
	df, err := unbox[D](diff, r.spec.Id())
	if err != nil {
		return nil, err
	}
	s, err := r.spec.Apply(ctx, pp, res, cur, gl, df, cleaning)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *rt[P, S, D]) ApplyDry(ctx context.Context, res *resources.Map, p any, current, goal, diff any, cleaning bool) (any, error) {
	pp, err := r.unboxP(p)
	if err != nil {
		return nil, err
	}
	cur, err := unbox[S](current, r.spec.Id())
	if err != nil {
		return nil, err
	}
	gl, err := unbox[S](goal, r.spec.Id())
	if err != nil {
		return nil, err
	}
	df, err := unbox[D](diff, r.spec.Id())
	if err != nil {
		return nil, err
	}
	s, err := r.spec.ApplyDry(ctx, pp, res, cur, gl, df, cleaning)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *rt[P, S, D]) StateClean(ctx context.Context, res *resources.Map, p any) (any, error) {
	pp, err := r.unboxP(p)
	if err != nil {
		return nil, err
	}
	s, err := r.spec.StateClean(ctx, pp, res)
	if err != nil || s == nil {
		return nil, err
	}
	return *s, nil
}

func (r *rt[P, S, D]) TryStateCurrent(ctx context.Context, res *resources.Map, partialParams any) (any, error) {
	var pp *P
	switch v := partialParams.(type) {
	case nil:
	case P:
		pp = &v
	case params.Partial[P]:
		// A Partial from ResolvePartial holds no assembled P, so the item
		// sees nil params.
	default:
		return nil, fmt.Errorf("item: %s: TryStateCurrent partial params type mismatch", r.spec.Id())
	}
	s, err := r.spec.TryStateCurrent(ctx, pp, res)
	if err != nil || s == nil {
		return nil, err
	}
	return *s, nil
}

func (r *rt[P, S, D]) DecodeState(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	var out S
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("item: %s: failed to decode stored state: %w", r.spec.Id(), err)
	}
	return out, nil
}

func (r *rt[P, S, D]) InsertState(res *resources.Map, state any) error {
	if state == nil {
		return nil
	}
	s, ok := state.(S)
	if !ok {
		return fmt.Errorf("item: %s: InsertState type mismatch: got %T", r.spec.Id(), state)
	}
	resources.Insert[S](res, s)
	return nil
}
