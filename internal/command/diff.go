package command

import (
	"sync"

	"github.com/spf13/cobra"

	"github.com/peaceflow/peace/internal/cmdblock"
	"github.com/peaceflow/peace/internal/cmdctx"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/output"
	"github.com/peaceflow/peace/internal/pipeline"
)

var (
	diffFlags    workspaceFlags
	diffProfileA string
	diffProfileB string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff stored current state against stored goal state",
	Long: `diff compares the flow's persisted states_current.yaml against states_goal.yaml item
by item. Passing --profile-a and --profile-b instead takes the stored current
state of profile A, or of profile B when A has no discovered current state
(multi-profile diff), and compares it against the stored goal state of the
profile and flow selected by --profile/--flow.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cctx, err := buildContext(ctx, diffFlags)
		if err != nil {
			return err
		}

		w := output.NewConsole()
		w.ProgressBegin(cctx.Graph.Ids())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() { defer wg.Done(); output.Drain(w, cctx.Hub) }()

		var out any
		if diffProfileA != "" && diffProfileB != "" {
			current, _, lookupErr := cmdctx.MultiProfileLookup(
				diffFlags.workspaceDir, item.FlowId(diffFlags.flowID),
				item.Profile(diffProfileA), item.Profile(diffProfileB), cctx.Registry)
			if lookupErr != nil {
				cctx.Hub.Close()
				wg.Wait()
				return lookupErr
			}
			goal, readErr := cmdblock.StatesGoalRead(cctx.Paths.FlowID, cctx.Paths.StatesGoal, cctx.Registry)
			if readErr != nil {
				cctx.Hub.Close()
				wg.Wait()
				return readErr
			}
			res, diffErr := pipeline.Diff(ctx, cctx.Input(), cctx.Paths, current, goal)
			cctx.Hub.Close()
			wg.Wait()
			if diffErr != nil {
				return diffErr
			}
			out = res.Value
		} else {
			res, diffErr := pipeline.DiffStored(ctx, cctx.Input(), cctx.Paths)
			cctx.Hub.Close()
			wg.Wait()
			if diffErr != nil {
				return diffErr
			}
			out = res.Value
		}

		w.ProgressEnd()
		return w.Present(outputFormat(diffFlags.outputFormat), out)
	},
}

func init() {
	addWorkspaceFlags(diffCmd, &diffFlags)
	diffCmd.Flags().StringVar(&diffProfileA, "profile-a", "", "first candidate profile for multi-profile diff")
	diffCmd.Flags().StringVar(&diffProfileB, "profile-b", "", "second candidate profile for multi-profile diff")
	rootCmd.AddCommand(diffCmd)
}
