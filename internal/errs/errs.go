// Package errs is the engine's structured error taxonomy (component K).
// Each kind carries enough structure (offending item ids, file spans) for
// a caller to decide what's user-visible; none of them are meant to be
// inspected with string matching.
package errs

import "fmt"

// ParamsSpecNotFound is returned when an item in the flow graph has no
// ParamsSpec, neither provided this run nor stored.
type ParamsSpecNotFound struct {
	ItemID string
}

func (e *ParamsSpecNotFound) Error() string {
	return fmt.Sprintf("errs: no ParamsSpec for item %q", e.ItemID)
}

// ParamsSpecsMismatch is returned when the set of items in the flow and
// the set of items with a ParamsSpec disagree in either direction.
type ParamsSpecsMismatch struct {
	ItemsMissingSpec []string
	SpecsWithNoItem  []string
}

func (e *ParamsSpecsMismatch) Error() string {
	return fmt.Sprintf("errs: params spec coverage mismatch: items missing specs=%v, orphan specs=%v",
		e.ItemsMissingSpec, e.SpecsWithNoItem)
}

// StatesSyncMismatch is returned when freshly discovered current/goal
// state disagrees with the last persisted snapshot.
type StatesSyncMismatch struct {
	Items []string
}

func (e *StatesSyncMismatch) Error() string {
	return fmt.Sprintf("errs: stored state out of sync with discovered state for items %v; re-run discovery", e.Items)
}

// StatesCurrentDiscoverRequired is returned when a command needing prior
// discovery finds no states_current.yaml.
type StatesCurrentDiscoverRequired struct{ FlowID string }

func (e *StatesCurrentDiscoverRequired) Error() string {
	return fmt.Sprintf("errs: flow %q has no discovered current state; run discovery first", e.FlowID)
}

// StatesGoalDiscoverRequired is returned when a command needing prior
// goal discovery finds no states_goal.yaml.
type StatesGoalDiscoverRequired struct{ FlowID string }

func (e *StatesGoalDiscoverRequired) Error() string {
	return fmt.Sprintf("errs: flow %q has no discovered goal state; run discovery first", e.FlowID)
}

// Span locates a byte range within a file, used by (De)SerializeError.
type Span struct {
	Offset int
	Length int
}

// SerializeError wraps a failure writing a persisted artifact.
type SerializeError struct {
	Path  string
	Cause error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("errs: failed to serialize %q: %v", e.Path, e.Cause)
}
func (e *SerializeError) Unwrap() error { return e.Cause }

// DeserializeError wraps a failure reading/parsing a persisted artifact,
// with a byte-offset span when the decoder could supply one.
type DeserializeError struct {
	Path    string
	Span    *Span
	Message string
	Cause   error
}

func (e *DeserializeError) Error() string {
	if e.Span != nil {
		return fmt.Sprintf("errs: failed to deserialize %q at offset %d: %s", e.Path, e.Span.Offset, e.Message)
	}
	return fmt.Sprintf("errs: failed to deserialize %q: %s", e.Path, e.Message)
}
func (e *DeserializeError) Unwrap() error { return e.Cause }

// ProfileNotInScope is returned by multi-profile diff when neither
// candidate profile is in scope.
type ProfileNotInScope struct {
	Profiles []string
}

func (e *ProfileNotInScope) Error() string {
	return fmt.Sprintf("errs: none of profiles %v are in scope", e.Profiles)
}

// ProfileStatesCurrentNotDiscovered is returned by multi-profile diff when
// a candidate profile is in scope but has not discovered current state.
type ProfileStatesCurrentNotDiscovered struct {
	Profile string
}

func (e *ProfileStatesCurrentNotDiscovered) Error() string {
	return fmt.Sprintf("errs: profile %q has not discovered current state", e.Profile)
}

// ItemError is an opaque wrapper carrying a user item's own error,
// attributed to a specific item id.
type ItemError struct {
	ItemID string
	Cause  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("errs: item %q failed: %v", e.ItemID, e.Cause)
}
func (e *ItemError) Unwrap() error { return e.Cause }
