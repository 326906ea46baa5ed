package command

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/peaceflow/peace/internal/cmdblock"
	"github.com/peaceflow/peace/internal/output"
	"github.com/peaceflow/peace/internal/pipeline"
)

var (
	applyFlags     workspaceFlags
	applyDryRun    bool
	applySyncCheck string
)

// parseSyncCheckMode maps the --sync-check flag's value to a
// cmdblock.SyncCheckMode, defaulting apply to re-verifying current state
// only (spec §8 invariant 3) while letting callers opt into goal/both or
// opt out entirely.
func parseSyncCheckMode(s string) (cmdblock.SyncCheckMode, error) {
	switch s {
	case "none":
		return cmdblock.SyncCheckNone, nil
	case "current":
		return cmdblock.SyncCheckCurrent, nil
	case "goal":
		return cmdblock.SyncCheckGoal, nil
	case "both":
		return cmdblock.SyncCheckBoth, nil
	default:
		return cmdblock.SyncCheckNone, fmt.Errorf("invalid --sync-check value %q: want none, current, goal, or both", s)
	}
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the flow's goal state",
	Long: `apply reads states_current.yaml and states_goal.yaml, re-checks that the
stored states selected by --sync-check (current state by default; none, goal
or both are accepted) are still in sync with a fresh discovery, and runs each item whose
ApplyCheck reports work is needed. --dry-run runs the same check but calls
ApplyDry instead of Apply and never persists the result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		syncMode, err := parseSyncCheckMode(applySyncCheck)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		cctx, err := buildContext(ctx, applyFlags)
		if err != nil {
			return err
		}

		w := output.NewConsole()
		w.ProgressBegin(cctx.Graph.Ids())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() { defer wg.Done(); output.Drain(w, cctx.Hub) }()

		out, err := pipeline.Apply(ctx, cctx.Input(), cctx.Paths, applyDryRun, syncMode)
		cctx.Hub.Close()
		wg.Wait()
		if err != nil {
			return err
		}

		w.ProgressEnd()
		return w.Present(outputFormat(applyFlags.outputFormat), out.Value)
	},
}

func init() {
	addWorkspaceFlags(applyCmd, &applyFlags)
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "compute what apply would do without mutating state")
	applyCmd.Flags().StringVar(&applySyncCheck, "sync-check", "current", "which stored snapshots to re-verify before applying: none, current, goal, or both")
	rootCmd.AddCommand(applyCmd)
}
