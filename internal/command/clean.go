package command

import (
	"sync"

	"github.com/spf13/cobra"

	"github.com/peaceflow/peace/internal/output"
	"github.com/peaceflow/peace/internal/pipeline"
)

var (
	cleanFlags  workspaceFlags
	cleanDryRun bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Tear down every item in the flow, in reverse dependency order",
	Long: `clean discovers current state, then walks the flow graph in reverse topological
order treating each item's StateClean as a goal: diffing it against current,
checking whether work is required, and running Apply (or ApplyDry with
--dry-run) only then. Without --dry-run, the resulting current state is persisted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cctx, err := buildContext(ctx, cleanFlags)
		if err != nil {
			return err
		}

		w := output.NewConsole()
		w.ProgressBegin(cctx.Graph.Ids())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() { defer wg.Done(); output.Drain(w, cctx.Hub) }()

		out, err := pipeline.Clean(ctx, cctx.Input(), cctx.Paths, cleanDryRun)
		cctx.Hub.Close()
		wg.Wait()
		if err != nil {
			return err
		}

		w.ProgressEnd()
		return w.Present(outputFormat(cleanFlags.outputFormat), out.Value)
	},
}

func init() {
	addWorkspaceFlags(cleanCmd, &cleanFlags)
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "compute what clean would tear down without mutating state")
	rootCmd.AddCommand(cleanCmd)
}
