package cmdblock

import (
	"errors"

	"github.com/peaceflow/peace/internal/errs"
	"github.com/peaceflow/peace/internal/state"
)

// StatesCurrentRead runs StatesCurrentReadBlock: loads states_current.yaml
// without touching any item. Absence is reported as
// errs.StatesCurrentDiscoverRequired (spec §4.E/§8) rather than surfaced
// as a raw file-not-found, since the recovery path is "run discover", not
// "fix a file".
func StatesCurrentRead(flowID, path string, reg *state.Registry) (state.States, error) {
	states, err := state.ReadStates(path, reg)
	if err != nil {
		var ne *state.NotExist
		if errors.As(err, &ne) {
			return nil, &errs.StatesCurrentDiscoverRequired{FlowID: flowID}
		}
		return nil, err
	}
	return states, nil
}

// StatesGoalRead runs StatesGoalReadBlock: loads states_goal.yaml, or
// errs.StatesGoalDiscoverRequired if absent.
func StatesGoalRead(flowID, path string, reg *state.Registry) (state.States, error) {
	states, err := state.ReadStates(path, reg)
	if err != nil {
		var ne *state.NotExist
		if errors.As(err, &ne) {
			return nil, &errs.StatesGoalDiscoverRequired{FlowID: flowID}
		}
		return nil, err
	}
	return states, nil
}
