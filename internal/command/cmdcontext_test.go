package command

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/peaceflow/peace/internal/output"
)

func TestOutputFormatDefaultsToTable(t *testing.T) {
	assert.Equal(t, output.FormatTable, outputFormat("table"))
	assert.Equal(t, output.FormatTable, outputFormat("anything-else"))
	assert.Equal(t, output.FormatJSON, outputFormat("json"))
	assert.Equal(t, output.FormatYAML, outputFormat("yaml"))
}

func TestAddWorkspaceFlagsRegistersDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "scratch"}
	var f workspaceFlags
	addWorkspaceFlags(cmd, &f)

	assert.NoError(t, cmd.Flags().Parse(nil))
	assert.Equal(t, ".", f.workspaceDir)
	assert.Equal(t, "default", f.profile)
	assert.Equal(t, "default", f.flowID)
	assert.Equal(t, "table", f.outputFormat)
}
