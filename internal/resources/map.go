// Package resources implements the heterogeneous, type-keyed resource map
// that every item function is handed: component A of the command execution
// engine. At most one value of each Go type may be present at a time.
package resources

import (
	"fmt"
	"reflect"
	"sync"
)

// Map is a type-keyed store holding at most one value per reflect.Type.
// It is the sole source of aliasing discipline in the engine: two
// concurrent exclusive borrows of the same type are rejected rather than
// silently racing.
//
// The zero value is not usable; construct with New.
type Map struct {
	mu     sync.Mutex
	values map[reflect.Type]any
	locked map[reflect.Type]*borrowState
}

type borrowState struct {
	exclusive bool
	shared    int
}

// New returns an empty Map.
func New() *Map {
	return &Map{
		values: make(map[reflect.Type]any),
		locked: make(map[reflect.Type]*borrowState),
	}
}

func typeOf[V any]() reflect.Type {
	var zero V
	t := reflect.TypeOf(zero)
	if t == nil {
		// V is an interface type instantiated with a nil value; fall back
		// to the static type via a pointer trick.
		t = reflect.TypeOf((*V)(nil)).Elem()
	}
	return t
}

// Insert stores v under its own type, overwriting any previous occupant.
// It panics if the type is currently borrowed — that indicates an
// engine-internal bug, never a condition an end user can trigger.
func Insert[V any](m *Map, v V) {
	t := typeOf[V]()
	m.mu.Lock()
	defer m.mu.Unlock()
	if bs, ok := m.locked[t]; ok && (bs.exclusive || bs.shared > 0) {
		panic(fmt.Sprintf("resources: Insert(%s) while borrowed", t))
	}
	m.values[t] = v
}

// Contains reports whether a value of type V is currently present.
func Contains[V any](m *Map) bool {
	t := typeOf[V]()
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[t]
	return ok
}

// Get returns a copy of the value of type V, or ok=false if absent.
func Get[V any](m *Map) (v V, ok bool) {
	t := typeOf[V]()
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, present := m.values[t]
	if !present {
		return v, false
	}
	return raw.(V), true
}

// Remove takes ownership of and deletes the value of type V.
func Remove[V any](m *Map) (v V, ok bool) {
	t := typeOf[V]()
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, present := m.values[t]
	if !present {
		return v, false
	}
	delete(m.values, t)
	delete(m.locked, t)
	return raw.(V), true
}

// Guard releases a borrow taken via BorrowShared/BorrowMut.
type Guard struct {
	m         *Map
	t         reflect.Type
	exclusive bool
}

// Release ends the borrow. Safe to call once; a second call is a no-op.
func (g *Guard) Release() {
	if g == nil || g.m == nil {
		return
	}
	g.m.mu.Lock()
	defer g.m.mu.Unlock()
	bs := g.m.locked[g.t]
	if bs == nil {
		return
	}
	if g.exclusive {
		bs.exclusive = false
	} else if bs.shared > 0 {
		bs.shared--
	}
	if !bs.exclusive && bs.shared == 0 {
		delete(g.m.locked, g.t)
	}
	g.m = nil
}

// BorrowShared takes a runtime-checked shared (read-only) borrow of V.
// It returns an error rather than panicking because callers (item
// functions) are expected to handle contention gracefully.
func BorrowShared[V any](m *Map) (V, *Guard, error) {
	t := typeOf[V]()
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, present := m.values[t]
	var zero V
	if !present {
		return zero, nil, fmt.Errorf("resources: no value of type %s present", t)
	}
	bs := m.locked[t]
	if bs == nil {
		bs = &borrowState{}
		m.locked[t] = bs
	}
	if bs.exclusive {
		return zero, nil, fmt.Errorf("resources: type %s is exclusively borrowed", t)
	}
	bs.shared++
	return raw.(V), &Guard{m: m, t: t, exclusive: false}, nil
}

// BorrowMut takes a runtime-checked exclusive (read-write) borrow of V.
// The returned pointer points at a copy of the stored value, not at the
// map's storage; callers must call Commit before releasing the guard to
// publish mutations (Insert panics while the borrow is held).
func BorrowMut[V any](m *Map) (*V, *Guard, error) {
	t := typeOf[V]()
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, present := m.values[t]
	if !present {
		return nil, nil, fmt.Errorf("resources: no value of type %s present", t)
	}
	bs := m.locked[t]
	if bs == nil {
		bs = &borrowState{}
		m.locked[t] = bs
	}
	if bs.exclusive || bs.shared > 0 {
		return nil, nil, fmt.Errorf("resources: type %s is already borrowed", t)
	}
	bs.exclusive = true
	v := raw.(V)
	return &v, &Guard{m: m, t: t, exclusive: true}, nil
}

// Commit writes back a value obtained from BorrowMut before releasing the
// guard. It is a plain Insert that skips the borrow check for this one
// type, since the caller is known to hold the exclusive borrow.
func Commit[V any](m *Map, v V) {
	t := typeOf[V]()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[t] = v
}

// Len reports how many distinct types currently have an occupant. Mostly
// useful for tests and diagnostics.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
