package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/patching"
	"github.com/peaceflow/peace/internal/state"
)

var stateFlags workspaceFlags

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and patch persisted state documents",
}

var statePatchCmd = &cobra.Command{
	Use:   "patch [current|goal] <template-file>",
	Short: "Apply a templated set of JSON-pointer-style edits to a states_*.yaml file",
	Long: `patch renders <template-file> (a Go template, with sprig functions, producing a
YAML list of {op, path, value} operations) against the named document's
current contents, applies each operation with sjson, and writes the
result back. Use this to hand-correct a persisted state without a full
round trip through Go structs, e.g. while debugging a flow.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := buildContext(cmd.Context(), stateFlags)
		if err != nil {
			return err
		}
		path, err := statePathFor(cctx.Paths.FlowID, cctx.Paths.StatesCurrent, cctx.Paths.StatesGoal, args[0])
		if err != nil {
			return err
		}
		tmplBytes, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("state patch: reading template %q: %w", args[1], err)
		}

		doc, err := state.ReadStates(path, cctx.Registry)
		if err != nil {
			var ne *state.NotExist
			if !errors.As(err, &ne) {
				return err
			}
			doc = state.States{}
		}

		patched, err := patching.Apply(doc, string(tmplBytes))
		if err != nil {
			return err
		}
		return state.WriteStates(path, toStates(patched))
	},
}

var stateGetCmd = &cobra.Command{
	Use:   "get [current|goal] <path>",
	Short: "Read one path out of a states_*.yaml document",
	Args:  cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := buildContext(cmd.Context(), stateFlags)
		if err != nil {
			return err
		}
		path, err := statePathFor(cctx.Paths.FlowID, cctx.Paths.StatesCurrent, cctx.Paths.StatesGoal, args[0])
		if err != nil {
			return err
		}
		doc, err := state.ReadStates(path, cctx.Registry)
		if err != nil {
			return err
		}
		result, err := patching.Get(doc, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.String())
		return nil
	},
}

func statePathFor(flowID, currentPath, goalPath, which string) (string, error) {
	switch which {
	case "current":
		return currentPath, nil
	case "goal":
		return goalPath, nil
	default:
		return "", fmt.Errorf("state: unknown document %q for flow %q, want current or goal", which, flowID)
	}
}

// toStates re-keys a string-keyed generic map (as produced by
// patching.Apply, which round-trips through encoding/json) back into
// item.Id-keyed States.
func toStates(m map[string]any) state.States {
	out := make(state.States, len(m))
	for k, v := range m {
		out[item.Id(k)] = v
	}
	return out
}

func init() {
	addWorkspaceFlags(stateCmd, &stateFlags)
	stateCmd.AddCommand(statePatchCmd)
	stateCmd.AddCommand(stateGetCmd)
	rootCmd.AddCommand(stateCmd)
}
