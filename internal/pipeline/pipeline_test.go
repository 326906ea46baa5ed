package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/cmdblock"
	"github.com/peaceflow/peace/internal/errs"
	"github.com/peaceflow/peace/internal/flow"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/outcome"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/progress"
	"github.com/peaceflow/peace/internal/resources"
	"github.com/peaceflow/peace/internal/state"
	"github.com/peaceflow/peace/items/vecopy"
)

func vecCopyHarness(t *testing.T) (cmdblock.Input, Paths) {
	t.Helper()
	id := item.MustId("vec_copy")

	b := flow.NewBuilder()
	require.NoError(t, b.AddItem(id))
	g, err := b.Build()
	require.NoError(t, err)

	reg := state.NewRegistry()
	spec := vecopy.New(id)
	rt := spec.Rt(params.NewResolver(nil))
	require.NoError(t, reg.Register(rt))

	res := resources.New()
	require.NoError(t, rt.Setup(res))

	in := cmdblock.Input{
		Graph:     g,
		Registry:  reg,
		Resources: res,
		Hub:       progress.NewHub(16),
	}

	dir := t.TempDir()
	paths := Paths{
		FlowID:        "vec-flow",
		FlowDir:       dir,
		StatesCurrent: filepath.Join(dir, "states_current.yaml"),
		StatesGoal:    filepath.Join(dir, "states_goal.yaml"),
	}
	return in, paths
}

func readHistoryCommands(t *testing.T, flowDir string) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(flowDir, "history", "log.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var cmds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e state.HistoryEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		cmds = append(cmds, e.Command)
	}
	require.NoError(t, sc.Err())
	return cmds
}

func TestDiscoverWritesBothStatesAndHistory(t *testing.T) {
	in, paths := vecCopyHarness(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	out, err := Discover(context.Background(), in, paths)
	require.NoError(t, err)
	assert.Equal(t, outcome.Complete, out.Status)
	assert.Equal(t, 2, out.BlocksProcessed)

	assert.FileExists(t, paths.StatesCurrent)
	assert.FileExists(t, paths.StatesGoal)
	assert.Equal(t, []string{"discover"}, readHistoryCommands(t, paths.FlowDir))

	goalOnDisk, err := state.ReadStates(paths.StatesGoal, in.Registry)
	require.NoError(t, err)
	st := goalOnDisk[item.Id("vec_copy")].(vecopy.State)
	assert.Equal(t, []byte("payload"), st.Bytes)
}

func TestDiscoverCurrentOnlyAndGoalOnly(t *testing.T) {
	in, paths := vecCopyHarness(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	curOut, err := DiscoverCurrentOnly(context.Background(), in, paths)
	require.NoError(t, err)
	assert.Equal(t, outcome.Complete, curOut.Status)
	assert.FileExists(t, paths.StatesCurrent)
	assert.NoFileExists(t, paths.StatesGoal)

	goalOut, err := DiscoverGoalOnly(context.Background(), in, paths)
	require.NoError(t, err)
	assert.Equal(t, outcome.Complete, goalOut.Status)
	assert.FileExists(t, paths.StatesGoal)

	assert.Equal(t, []string{"discover-current", "discover-goal"}, readHistoryCommands(t, paths.FlowDir))
}

func TestApplyPersistsAfterStateAndRecordsHistory(t *testing.T) {
	in, paths := vecCopyHarness(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	_, err := Discover(context.Background(), in, paths)
	require.NoError(t, err)

	out, err := Apply(context.Background(), in, paths, false, cmdblock.SyncCheckCurrent)
	require.NoError(t, err)
	assert.Equal(t, outcome.Complete, out.Status)

	st := out.Value.After[item.Id("vec_copy")].(vecopy.State)
	assert.Equal(t, []byte("payload"), st.Bytes)

	dest, _ := resources.Get[vecopy.Dest](in.Resources)
	assert.Equal(t, []byte("payload"), []byte(dest))

	onDisk, err := state.ReadStates(paths.StatesCurrent, in.Registry)
	require.NoError(t, err)
	onDiskSt := onDisk[item.Id("vec_copy")].(vecopy.State)
	assert.Equal(t, []byte("payload"), onDiskSt.Bytes)

	assert.Contains(t, readHistoryCommands(t, paths.FlowDir), "apply")
}

func TestApplyDryRunDoesNotPersistOrMutate(t *testing.T) {
	in, paths := vecCopyHarness(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	_, err := Discover(context.Background(), in, paths)
	require.NoError(t, err)

	before, err := os.ReadFile(paths.StatesCurrent)
	require.NoError(t, err)

	out, err := Apply(context.Background(), in, paths, true, cmdblock.SyncCheckCurrent)
	require.NoError(t, err)
	assert.Equal(t, outcome.Complete, out.Status)

	after, err := os.ReadFile(paths.StatesCurrent)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	dest, _ := resources.Get[vecopy.Dest](in.Resources)
	assert.Empty(t, dest)

	assert.Contains(t, readHistoryCommands(t, paths.FlowDir), "apply-dry")
}

func TestApplyMissingDiscoveryReturnsDiscoverRequiredError(t *testing.T) {
	in, paths := vecCopyHarness(t)

	_, err := Apply(context.Background(), in, paths, false, cmdblock.SyncCheckCurrent)
	require.Error(t, err)
	var notDiscovered *errs.StatesCurrentDiscoverRequired
	assert.ErrorAs(t, err, &notDiscovered)
}

func TestApplyDetectsStaleStoredState(t *testing.T) {
	in, paths := vecCopyHarness(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	_, err := Discover(context.Background(), in, paths)
	require.NoError(t, err)

	resources.Insert(in.Resources, vecopy.Src("changed-after-discover"))
	resources.Remove[vecopy.Dest](in.Resources)
	resources.Insert(in.Resources, vecopy.Dest("out-of-band-write"))

	_, err = Apply(context.Background(), in, paths, false, cmdblock.SyncCheckCurrent)
	require.Error(t, err)
	var mismatch *errs.StatesSyncMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Items, "vec_copy")
}

func TestCleanPersistsEmptyStateAndRecordsHistory(t *testing.T) {
	in, paths := vecCopyHarness(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	_, err := Discover(context.Background(), in, paths)
	require.NoError(t, err)
	_, err = Apply(context.Background(), in, paths, false, cmdblock.SyncCheckCurrent)
	require.NoError(t, err)

	out, err := Clean(context.Background(), in, paths, false)
	require.NoError(t, err)
	assert.Equal(t, outcome.Complete, out.Status)

	dest, _ := resources.Get[vecopy.Dest](in.Resources)
	assert.Empty(t, dest)

	assert.Contains(t, readHistoryCommands(t, paths.FlowDir), "clean")
}

func TestDiffBetweenExplicitStates(t *testing.T) {
	in, paths := vecCopyHarness(t)

	current := state.States{item.Id("vec_copy"): vecopy.State{Bytes: []byte("old")}}
	goal := state.States{item.Id("vec_copy"): vecopy.State{Bytes: []byte("new")}}

	out, err := Diff(context.Background(), in, paths, current, goal)
	require.NoError(t, err)
	assert.Equal(t, outcome.Complete, out.Status)

	d := out.Value[item.Id("vec_copy")].(vecopy.StateDiff)
	assert.True(t, d.Differs)
	assert.Contains(t, readHistoryCommands(t, paths.FlowDir), "diff")
}

func TestDiffStoredLoadsPersistedStates(t *testing.T) {
	in, paths := vecCopyHarness(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	_, err := Discover(context.Background(), in, paths)
	require.NoError(t, err)

	out, err := DiffStored(context.Background(), in, paths)
	require.NoError(t, err)
	assert.Equal(t, outcome.Complete, out.Status)

	d := out.Value[item.Id("vec_copy")].(vecopy.StateDiff)
	assert.True(t, d.Differs)
}

func TestDiffStoredErrorsWithoutDiscovery(t *testing.T) {
	in, paths := vecCopyHarness(t)

	_, err := DiffStored(context.Background(), in, paths)
	require.Error(t, err)
	var notDiscovered *errs.StatesCurrentDiscoverRequired
	assert.ErrorAs(t, err, &notDiscovered)
}
