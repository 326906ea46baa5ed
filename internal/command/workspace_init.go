package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peaceflow/peace/internal/cmdctx"
	"github.com/peaceflow/peace/internal/config"
	"github.com/peaceflow/peace/internal/item"
)

var workspaceInitFlags workspaceFlags

var workspaceInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new workspace/profile/flow directory layout",
	Long: `init creates the .peace directory structure a workspace, profile and flow need
(workspace_params.yaml, profile_params.yaml, flow_params.yaml, and the
flow's directory for states_*.yaml/params_specs.yaml), each starting
empty if not already present.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := cmdctx.Layout{
			WorkspaceDir: workspaceInitFlags.workspaceDir,
			Profile:      item.Profile(workspaceInitFlags.profile),
			FlowID:       item.FlowId(workspaceInitFlags.flowID),
		}
		for _, path := range layout.ParamsPaths() {
			if _, err := os.Stat(path); err == nil {
				continue
			}
			if err := config.Save(path, config.Params{}); err != nil {
				return fmt.Errorf("init: %w", err)
			}
		}
		if err := os.MkdirAll(layout.FlowDir(), 0o755); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized workspace %q profile %q flow %q\n",
			workspaceInitFlags.workspaceDir, workspaceInitFlags.profile, workspaceInitFlags.flowID)
		return nil
	},
}

func init() {
	addWorkspaceFlags(workspaceInitCmd, &workspaceInitFlags)
	rootCmd.AddCommand(workspaceInitCmd)
}
