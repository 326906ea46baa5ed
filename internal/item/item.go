package item

import (
	"context"

	"github.com/peaceflow/peace/internal/resources"
)

// ApplyCheck is the result of Spec.ApplyCheck: either no work is needed,
// or work is needed with an optional progress unit limit (e.g. bytes for
// a download, file count for an extraction).
type ApplyCheck struct {
	execRequired  bool
	progressLimit *uint64
}

// ExecRequired returns an ApplyCheck indicating work must run, optionally
// carrying a known progress unit limit.
func ExecRequired(progressLimit *uint64) ApplyCheck {
	return ApplyCheck{execRequired: true, progressLimit: progressLimit}
}

// ExecNotRequired returns an ApplyCheck indicating current already matches
// goal; Apply/ApplyDry must not be invoked.
func ExecNotRequired() ApplyCheck {
	return ApplyCheck{}
}

// Required reports whether Apply/ApplyDry should run.
func (a ApplyCheck) Required() bool { return a.execRequired }

// ProgressLimit returns the known unit limit, if any.
func (a ApplyCheck) ProgressLimit() (uint64, bool) {
	if a.progressLimit == nil {
		return 0, false
	}
	return *a.progressLimit, true
}

// BorrowSet declares, per item, which resource map types it accesses and
// whether each is mutable. flow.Walk does not consult it: an item runs as
// soon as all of its predecessors have completed, whatever its Reads and
// Writes.
type BorrowSet struct {
	Reads  []string
	Writes []string
}

// Spec is the typed, user-facing item contract: component B of the
// engine. P is the item's Params type, S its State type, D its StateDiff
// type. Implementations should be side-effect-free in every method except
// Apply (and, for I/O, StateCurrent/StateGoal which only observe).
//
// A nil *S return from StateCurrent/StateGoal/StateClean/TryStateCurrent
// means "nothing currently exists" / "nothing to clean".
type Spec[P any, S any, D any] interface {
	// Id returns this item's stable identifier.
	Id() Id

	// Setup inserts any resource-map types this item will later borrow,
	// with defaults if applicable. Called exactly once per context build.
	Setup(res *resources.Map) error

	// Data describes the resource types this item borrows and how.
	Data() BorrowSet

	StateCurrent(ctx context.Context, params P, res *resources.Map) (*S, error)
	StateGoal(ctx context.Context, params P, res *resources.Map) (*S, error)
	StateDiff(ctx context.Context, params P, res *resources.Map, current, goal *S) (*D, error)
	ApplyCheck(ctx context.Context, params P, res *resources.Map, current, goal *S, diff *D) (ApplyCheck, error)

	// Apply and ApplyDry converge current towards goal. cleaning is true
	// when goal came from StateClean rather than StateGoal (the clean
	// command's reverse pass, spec's supplemented Clean feature); items
	// whose teardown differs from their normal convergence (e.g. running
	// a different shell command, or removing rather than truncating a
	// file) branch on it.
	Apply(ctx context.Context, params P, res *resources.Map, current, goal *S, diff *D, cleaning bool) (S, error)
	ApplyDry(ctx context.Context, params P, res *resources.Map, current, goal *S, diff *D, cleaning bool) (S, error)

	// StateClean computes the goal state of a torn-down item. Like every
	// method but Apply, it must be side-effect-free: the reverse clean
	// pass diffs this against current and only calls Apply when
	// ApplyCheck says work is required.
	StateClean(ctx context.Context, params P, res *resources.Map) (*S, error)

	// TryStateCurrent is a forgiving variant used by current-state
	// discovery when params do not fully resolve. partialParams is nil
	// when no complete P could be obtained; implementations should do
	// their best with whatever's in res in that case.
	TryStateCurrent(ctx context.Context, partialParams *P, res *resources.Map) (*S, error)
}
