package command

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/peaceflow/peace/internal/cmdctx"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/output"
	"github.com/peaceflow/peace/internal/params"
)

// workspaceFlags are shared by every flow-running subcommand, naming
// which on-disk workspace/profile/flow a command operates against.
type workspaceFlags struct {
	workspaceDir string
	profile      string
	flowID       string
	outputFormat string
}

func addWorkspaceFlags(cmd *cobra.Command, f *workspaceFlags) {
	cmd.Flags().StringVar(&f.workspaceDir, "workspace", ".", "workspace root directory")
	cmd.Flags().StringVar(&f.profile, "profile", "default", "profile name")
	cmd.Flags().StringVar(&f.flowID, "flow", "default", "flow id")
	cmd.Flags().StringVar(&f.outputFormat, "output", "table", "output format: table, json, yaml")
}

// buildContext constructs a cmdctx.Context wired to the fixed reference
// item flow (flowdef.go) plus a resolver whose Stored lookup is wired to
// the context's freshly-loaded params_specs.yaml once Build returns —
// Build must run first since it is what loads that document.
func buildContext(ctx context.Context, f workspaceFlags) (*cmdctx.Context, error) {
	resolver := params.NewResolver(nil)
	items := buildItems(resolver)
	cctx, err := cmdctx.Build(ctx, cmdctx.Layout{
		WorkspaceDir: f.workspaceDir,
		Profile:      item.Profile(f.profile),
		FlowID:       item.FlowId(f.flowID),
	}, items, nil)
	if err != nil {
		return nil, err
	}
	resolver.Stored = cctx.ParamsSpecs
	return cctx, nil
}

func outputFormat(s string) output.Format {
	switch s {
	case "json":
		return output.FormatJSON
	case "yaml":
		return output.FormatYAML
	default:
		return output.FormatTable
	}
}
