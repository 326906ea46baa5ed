package cmdctx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/items/vecopy"
)

func vecCopyItemDef() ItemDef {
	id := item.MustId("vec_copy")
	spec := vecopy.New(id)
	return ItemDef{Rt: spec.Rt(params.NewResolver(nil))}
}

func testLayout(t *testing.T) Layout {
	t.Helper()
	return Layout{
		WorkspaceDir: t.TempDir(),
		Profile:      item.Profile("dev"),
		FlowID:       item.FlowId("deploy"),
	}
}

func TestBuildWiresGraphRegistryAndResources(t *testing.T) {
	layout := testLayout(t)
	specs := map[item.Id]any{"vec_copy": map[string]any{}}

	c, err := Build(context.Background(), layout, []ItemDef{vecCopyItemDef()}, specs)
	require.NoError(t, err)

	assert.Equal(t, []item.Id{"vec_copy"}, c.Graph.Ids())
	_, ok := c.Registry.Get(item.MustId("vec_copy"))
	assert.True(t, ok)

	assert.Equal(t, layout.flowDir(), c.Paths.FlowDir)
	assert.Equal(t, string(layout.FlowID), c.Paths.FlowID)
	assert.Equal(t, layout.statesCurrentPath(), c.Paths.StatesCurrent)
	assert.Equal(t, layout.statesGoalPath(), c.Paths.StatesGoal)
}

func TestBuildMergesAmbientParamsTiers(t *testing.T) {
	layout := testLayout(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.workspaceParamsPath()), 0o755))
	require.NoError(t, os.WriteFile(layout.workspaceParamsPath(), []byte("region: us-east-1\nreplicas: 1\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.profileParamsPath()), 0o755))
	require.NoError(t, os.WriteFile(layout.profileParamsPath(), []byte("replicas: 3\n"), 0o644))

	specs := map[item.Id]any{"vec_copy": map[string]any{}}
	c, err := Build(context.Background(), layout, []ItemDef{vecCopyItemDef()}, specs)
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", c.Params["region"])
	assert.EqualValues(t, 3, c.Params["replicas"])
}

func TestBuildRejectsParamsFailingSchema(t *testing.T) {
	layout := testLayout(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.paramsSchemaPath()), 0o755))
	require.NoError(t, os.WriteFile(layout.paramsSchemaPath(), []byte(`{
		"type": "object",
		"properties": {"replicas": {"type": "integer", "minimum": 1}},
		"required": ["replicas"]
	}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.workspaceParamsPath()), 0o755))
	require.NoError(t, os.WriteFile(layout.workspaceParamsPath(), []byte("replicas: 0\n"), 0o644))

	specs := map[item.Id]any{"vec_copy": map[string]any{}}
	_, err := Build(context.Background(), layout, []ItemDef{vecCopyItemDef()}, specs)
	require.Error(t, err)
	assert.ErrorContains(t, err, "schema validation")
}

func TestBuildAcceptsParamsSatisfyingSchema(t *testing.T) {
	layout := testLayout(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.paramsSchemaPath()), 0o755))
	require.NoError(t, os.WriteFile(layout.paramsSchemaPath(), []byte(`{
		"type": "object",
		"properties": {"replicas": {"type": "integer", "minimum": 1}},
		"required": ["replicas"]
	}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.workspaceParamsPath()), 0o755))
	require.NoError(t, os.WriteFile(layout.workspaceParamsPath(), []byte("replicas: 3\n"), 0o644))

	specs := map[item.Id]any{"vec_copy": map[string]any{}}
	c, err := Build(context.Background(), layout, []ItemDef{vecCopyItemDef()}, specs)
	require.NoError(t, err)
	assert.EqualValues(t, 3, c.Params["replicas"])
}

func TestBuildFailsWhenParamsSpecCoverageIncomplete(t *testing.T) {
	layout := testLayout(t)

	_, err := Build(context.Background(), layout, []ItemDef{vecCopyItemDef()}, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "coverage mismatch")
}

func TestBuildRejectsUnknownEdgeDependency(t *testing.T) {
	layout := testLayout(t)
	def := vecCopyItemDef()
	def.DependsOn = []item.Id{item.MustId("does_not_exist")}
	specs := map[item.Id]any{"vec_copy": map[string]any{}}

	_, err := Build(context.Background(), layout, []ItemDef{def}, specs)
	assert.Error(t, err)
}

func TestContextInputProjectsNarrowerShape(t *testing.T) {
	layout := testLayout(t)
	specs := map[item.Id]any{"vec_copy": map[string]any{}}

	c, err := Build(context.Background(), layout, []ItemDef{vecCopyItemDef()}, specs)
	require.NoError(t, err)

	in := c.Input()
	assert.Same(t, c.Graph, in.Graph)
	assert.Same(t, c.Registry, in.Registry)
	assert.Same(t, c.Resources, in.Resources)
	assert.Same(t, c.Hub, in.Hub)
}

func TestPersistWritesParamsSpecsFile(t *testing.T) {
	layout := testLayout(t)
	specs := map[item.Id]any{"vec_copy": map[string]any{}}

	c, err := Build(context.Background(), layout, []ItemDef{vecCopyItemDef()}, specs)
	require.NoError(t, err)

	require.NoError(t, c.Persist())
	assert.FileExists(t, layout.paramsSpecsPath())
}
