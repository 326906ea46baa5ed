// Package flow implements the Flow Graph (component D): an immutable DAG
// of items whose edges encode "must run before" ordering, supporting
// forward/reverse topological streams and a concurrent stream that yields
// each node once its predecessors (in the chosen direction) have
// completed.
package flow

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/peaceflow/peace/internal/item"
)

// Direction selects which way the DAG is walked. Forward is used for
// discover/ensure; Reverse is used for clean.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// Graph is an immutable DAG of item ids. Construct via Builder.
type Graph struct {
	ids   []item.Id
	index map[item.Id]int
	// succ[i] lists the indices of items that must run after ids[i].
	succ [][]int
	// pred[i] lists the indices of items that must run before ids[i].
	pred [][]int
}

// Ids returns the item ids in the order they were added.
func (g *Graph) Ids() []item.Id {
	out := make([]item.Id, len(g.ids))
	copy(out, g.ids)
	return out
}

// Len returns the number of items in the graph.
func (g *Graph) Len() int { return len(g.ids) }

// Predecessors returns the direct predecessors of id.
func (g *Graph) Predecessors(id item.Id) []item.Id {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]item.Id, len(g.pred[i]))
	for j, p := range g.pred[i] {
		out[j] = g.ids[p]
	}
	return out
}

// Successors returns the direct successors of id.
func (g *Graph) Successors(id item.Id) []item.Id {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]item.Id, len(g.succ[i]))
	for j, s := range g.succ[i] {
		out[j] = g.ids[s]
	}
	return out
}

// TopoForward returns item ids in an order where every predecessor
// precedes its successors.
func (g *Graph) TopoForward() []item.Id {
	order := g.kahn(g.pred, g.succ)
	out := make([]item.Id, len(order))
	for i, idx := range order {
		out[i] = g.ids[idx]
	}
	return out
}

// TopoReverse returns item ids in the reverse order: every successor
// precedes its predecessors. Used by the clean command.
func (g *Graph) TopoReverse() []item.Id {
	order := g.kahn(g.succ, g.pred)
	out := make([]item.Id, len(order))
	for i, idx := range order {
		out[i] = g.ids[idx]
	}
	return out
}

// kahn computes a topological order where "before" lists the in-edges to
// use for in-degree counting and "after" lists the corresponding
// out-edges to relax. Graph construction already validated acyclicity, so
// this never returns a partial order.
func (g *Graph) kahn(before, after [][]int) []int {
	n := len(g.ids)
	inDegree := make([]int, n)
	for i := range before {
		inDegree[i] = len(before[i])
	}
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	order := make([]int, 0, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, j := range after[i] {
			inDegree[j]--
			if inDegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	return order
}

// WalkFunc is invoked once per item once all of its predecessors (in the
// chosen direction) have completed their own WalkFunc invocation.
type WalkFunc func(ctx context.Context, id item.Id) error

// Walk drives every item's WalkFunc concurrently, respecting direction:
// an item only becomes ready once every predecessor (per direction) has
// returned from its own call. It mirrors the source framework's join-set
// polling loop using an errgroup.Group as the task multiplexer.
//
// Walk does not stop spawning new tasks on the first error; per spec §5,
// a block drains all already-spawned tasks to completion before
// returning. Descendants of a failed item are never spawned and are
// reported via the skipped callback.
func Walk(ctx context.Context, g *Graph, direction Direction, fn WalkFunc, skipped func(id item.Id)) error {
	before, after := g.pred, g.succ
	if direction == Reverse {
		before, after = g.succ, g.pred
	}

	n := len(g.ids)
	var mu sync.Mutex
	inDegree := make([]int, n)
	failed := make([]bool, n)
	for i := range before {
		inDegree[i] = len(before[i])
	}

	eg, egCtx := errgroup.WithContext(ctx)
	var spawn func(i int)
	spawn = func(i int) {
		eg.Go(func() error {
			// Check whether any predecessor already failed; if so this
			// node never runs, and neither do its successors.
			mu.Lock()
			predFailed := false
			for _, p := range before[i] {
				if failed[p] {
					predFailed = true
					break
				}
			}
			mu.Unlock()

			if predFailed {
				mu.Lock()
				failed[i] = true
				mu.Unlock()
				if skipped != nil {
					skipped(g.ids[i])
				}
				return g.relax(after, i, inDegree, &mu, spawn, failed, nil)
			}

			err := fn(egCtx, g.ids[i])
			mu.Lock()
			if err != nil {
				failed[i] = true
			}
			mu.Unlock()
			return g.relax(after, i, inDegree, &mu, spawn, failed, err)
		})
	}

	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			spawn(i)
		}
	}

	return eg.Wait()
}

// relax decrements the in-degree of every successor of i and spawns any
// that reach zero. It returns origErr unchanged so callers can propagate
// the triggering item's own error through the errgroup.
func (g *Graph) relax(after [][]int, i int, inDegree []int, mu *sync.Mutex, spawn func(int), failed []bool, origErr error) error {
	mu.Lock()
	ready := make([]int, 0)
	for _, j := range after[i] {
		inDegree[j]--
		if inDegree[j] == 0 {
			ready = append(ready, j)
		}
	}
	mu.Unlock()
	for _, j := range ready {
		spawn(j)
	}
	return origErr
}

// Builder assembles a Graph, validating acyclicity at Build time.
type Builder struct {
	ids     []item.Id
	index   map[item.Id]int
	edgesFn map[item.Id]map[item.Id]bool // before -> set of after
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		index:   make(map[item.Id]int),
		edgesFn: make(map[item.Id]map[item.Id]bool),
	}
}

// AddItem registers id in the graph. Adding the same id twice is an error
// (spec §8 invariant 1: uniqueness).
func (b *Builder) AddItem(id item.Id) error {
	if _, exists := b.index[id]; exists {
		return fmt.Errorf("flow: item id %q already present in graph", id)
	}
	b.index[id] = len(b.ids)
	b.ids = append(b.ids, id)
	b.edgesFn[id] = make(map[item.Id]bool)
	return nil
}

// AddEdge records that before must run before after. Both ids must already
// have been added via AddItem.
func (b *Builder) AddEdge(before, after item.Id) error {
	if _, ok := b.index[before]; !ok {
		return fmt.Errorf("flow: unknown item id %q in edge", before)
	}
	if _, ok := b.index[after]; !ok {
		return fmt.Errorf("flow: unknown item id %q in edge", after)
	}
	b.edgesFn[before][after] = true
	return nil
}

// Build validates the graph is acyclic and returns it.
func (b *Builder) Build() (*Graph, error) {
	n := len(b.ids)
	g := &Graph{
		ids:   append([]item.Id{}, b.ids...),
		index: make(map[item.Id]int, n),
		succ:  make([][]int, n),
		pred:  make([][]int, n),
	}
	for i, id := range g.ids {
		g.index[id] = i
	}
	for before, afters := range b.edgesFn {
		bi := g.index[before]
		for after := range afters {
			ai := g.index[after]
			g.succ[bi] = append(g.succ[bi], ai)
			g.pred[ai] = append(g.pred[ai], bi)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, fmt.Errorf("flow: cycle detected among items: %v", cycle)
	}
	return g, nil
}

// findCycle returns the ids involved in a cycle, or nil if the graph is
// acyclic, via a standard white/gray/black DFS.
func (g *Graph) findCycle() []item.Id {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	n := len(g.ids)
	color := make([]int, n)
	var stack []int
	var cycle []item.Id

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = gray
		stack = append(stack, i)
		for _, j := range g.succ[i] {
			if color[j] == gray {
				// build the cycle from the stack
				start := 0
				for k, s := range stack {
					if s == j {
						start = k
						break
					}
				}
				for _, s := range stack[start:] {
					cycle = append(cycle, g.ids[s])
				}
				cycle = append(cycle, g.ids[j])
				return true
			}
			if color[j] == white {
				if visit(j) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := 0; i < n; i++ {
		if color[i] == white {
			if visit(i) {
				return cycle
			}
		}
	}
	return nil
}
