package command

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/cmdctx"
	"github.com/peaceflow/peace/internal/item"
)

func TestWorkspaceInitScaffoldsParamsAndFlowDir(t *testing.T) {
	dir := t.TempDir()
	stdout, stderr, err := executeAndResetCommand(context.Background(), rootCmd,
		[]string{"init", "--workspace", dir, "--profile", "dev", "--flow", "deploy"})
	require.NoError(t, err)
	assert.Contains(t, stdout, `initialized workspace "`+dir+`" profile "dev" flow "deploy"`)
	assert.Equal(t, "", stderr)

	layout := cmdctx.Layout{WorkspaceDir: dir, Profile: item.Profile("dev"), FlowID: item.FlowId("deploy")}
	for _, p := range layout.ParamsPaths() {
		assert.FileExists(t, p)
	}
	assert.DirExists(t, layout.FlowDir())
}

func TestWorkspaceInitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	_, _, err := executeAndResetCommand(context.Background(), rootCmd,
		[]string{"init", "--workspace", dir})
	require.NoError(t, err)

	customParams := filepath.Join(dir, ".peace", "workspace_params.yaml")
	assert.FileExists(t, customParams)

	_, _, err = executeAndResetCommand(context.Background(), rootCmd,
		[]string{"init", "--workspace", dir})
	require.NoError(t, err)
	assert.FileExists(t, customParams)
}
