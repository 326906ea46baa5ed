package cmdctx

import (
	"os"

	"github.com/peaceflow/peace/internal/errs"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/state"
)

// MultiProfileLookup resolves the "diff profile_a profile_b" supplemented
// feature's Open Question (ii): which profile's states_current.yaml to
// use when the caller names two profiles but only one (or neither) has
// ever discovered state. Resolution order is profile_a first, then
// profile_b; a profile is only a candidate if its flow directory exists
// and states_current.yaml has been written.
func MultiProfileLookup(workspaceDir string, flowID item.FlowId, profileA, profileB item.Profile, reg *state.Registry) (state.States, item.Profile, error) {
	candidates := []item.Profile{profileA, profileB}
	var inScope []item.Profile

	for _, p := range candidates {
		layout := Layout{WorkspaceDir: workspaceDir, Profile: p, FlowID: flowID}
		if _, err := os.Stat(layout.flowDir()); err != nil {
			continue
		}
		inScope = append(inScope, p)
	}
	if len(inScope) == 0 {
		return nil, "", &errs.ProfileNotInScope{Profiles: []string{string(profileA), string(profileB)}}
	}

	for _, p := range inScope {
		layout := Layout{WorkspaceDir: workspaceDir, Profile: p, FlowID: flowID}
		states, err := state.ReadStates(layout.statesCurrentPath(), reg)
		if err == nil {
			return states, p, nil
		}
		var ne *state.NotExist
		if !isNotExist(err, &ne) {
			return nil, "", err
		}
	}
	return nil, "", &errs.ProfileStatesCurrentNotDiscovered{Profile: string(inScope[0])}
}
