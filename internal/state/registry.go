// Package state implements the State Store & Serializer (component E):
// reading/writing the YAML-encoded, ItemId-keyed documents that make a
// flow's discovery incremental (states_current.yaml, states_goal.yaml,
// params_specs.yaml), plus the append-only history log.
package state

import (
	"fmt"

	"github.com/peaceflow/peace/internal/item"
)

// Registry maps each item id in a flow to its Rt adapter, letting the
// serializer dispatch decode-into-concrete-type without reflection on the
// serializer's part (the dispatch itself is a map lookup; the per-item
// decode uses the adapter's own generic knowledge of its State type).
// Built once at context-construction time by walking the flow graph,
// mirroring the source framework's type registry (spec §4.E).
type Registry struct {
	byID map[item.Id]item.Rt
	ids  []item.Id
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[item.Id]item.Rt)}
}

// Register adds rt to the registry. Registering the same id twice is an
// error (mirrors flow graph uniqueness, spec §8 invariant 1).
func (r *Registry) Register(rt item.Rt) error {
	id := rt.Id()
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("state: item id %q already registered", id)
	}
	r.byID[id] = rt
	r.ids = append(r.ids, id)
	return nil
}

// Get returns the Rt adapter for id.
func (r *Registry) Get(id item.Id) (item.Rt, bool) {
	rt, ok := r.byID[id]
	return rt, ok
}

// Ids returns every registered item id, in registration order.
func (r *Registry) Ids() []item.Id {
	out := make([]item.Id, len(r.ids))
	copy(out, r.ids)
	return out
}
