package command

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/peaceflow/peace/internal/output"
	"github.com/peaceflow/peace/internal/pipeline"
)

var discoverFlags workspaceFlags

var discoverCmd = &cobra.Command{
	Use:   "discover [current|goal]",
	Short: "Discover current and/or goal state for every item in the flow",
	Long: `discover walks the flow graph and calls each item's StateCurrent and StateGoal,
persisting the results to states_current.yaml and states_goal.yaml. Passing
"current" or "goal" runs only that half.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cctx, err := buildContext(ctx, discoverFlags)
		if err != nil {
			return err
		}

		w := output.NewConsole()
		w.ProgressBegin(cctx.Graph.Ids())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() { defer wg.Done(); output.Drain(w, cctx.Hub) }()

		which := "both"
		if len(args) == 1 {
			which = args[0]
		}

		var presented any
		switch which {
		case "current":
			out, err := pipeline.DiscoverCurrentOnly(ctx, cctx.Input(), cctx.Paths)
			cctx.Hub.Close()
			wg.Wait()
			if err != nil {
				return err
			}
			presented = out.Value
		case "goal":
			out, err := pipeline.DiscoverGoalOnly(ctx, cctx.Input(), cctx.Paths)
			cctx.Hub.Close()
			wg.Wait()
			if err != nil {
				return err
			}
			presented = out.Value
		case "both":
			out, err := pipeline.Discover(ctx, cctx.Input(), cctx.Paths)
			cctx.Hub.Close()
			wg.Wait()
			if err != nil {
				return err
			}
			presented = out.Value
		default:
			cctx.Hub.Close()
			wg.Wait()
			return fmt.Errorf("discover: unknown argument %q, want current, goal, or nothing", which)
		}

		w.ProgressEnd()
		return w.Present(outputFormat(discoverFlags.outputFormat), presented)
	},
}

func init() {
	addWorkspaceFlags(discoverCmd, &discoverFlags)
	rootCmd.AddCommand(discoverCmd)
}
