package cmdblock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/flow"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/progress"
	"github.com/peaceflow/peace/internal/resources"
	"github.com/peaceflow/peace/internal/state"
	"github.com/peaceflow/peace/items/vecopy"
)

func singleVecCopyInput(t *testing.T) Input {
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

	return Input{
		Graph:     g,
		Registry:  reg,
		Resources: res,
		Hub:       progress.NewHub(16),
	}
}

func TestDiscoverCurrentEmptyDest(t *testing.T) {
	in := singleVecCopyInput(t)
	res, states, err := DiscoverCurrent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())
	st := states[item.Id("vec_copy")].(vecopy.State)
	assert.Empty(t, st.Bytes)
}

func TestDiscoverGoalReadsSrc(t *testing.T) {
	in := singleVecCopyInput(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	res, states, err := DiscoverGoal(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())

	st := states[item.Id("vec_copy")].(vecopy.State)
	assert.Equal(t, []byte("payload"), st.Bytes)
}

func TestApplyExecAppliesWhenDiffers(t *testing.T) {
	in := singleVecCopyInput(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	_, current, err := DiscoverCurrent(context.Background(), in)
	require.NoError(t, err)
	_, goal, err := DiscoverGoal(context.Background(), in)
	require.NoError(t, err)

	res, states, err := ApplyExec(context.Background(), in, current, goal, false)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())

	st := states[item.Id("vec_copy")].(vecopy.State)
	assert.Equal(t, []byte("payload"), st.Bytes)

	dest, _ := resources.Get[vecopy.Dest](in.Resources)
	assert.Equal(t, []byte("payload"), []byte(dest))
}

func TestApplyExecDryRunDoesNotMutateResources(t *testing.T) {
	in := singleVecCopyInput(t)
	resources.Insert(in.Resources, vecopy.Src("payload"))

	_, current, err := DiscoverCurrent(context.Background(), in)
	require.NoError(t, err)
	_, goal, err := DiscoverGoal(context.Background(), in)
	require.NoError(t, err)

	_, _, err = ApplyExec(context.Background(), in, current, goal, true)
	require.NoError(t, err)

	dest, _ := resources.Get[vecopy.Dest](in.Resources)
	assert.Empty(t, dest)
}

func TestApplyExecSkipsWhenNoDiff(t *testing.T) {
	in := singleVecCopyInput(t)
	resources.Insert(in.Resources, vecopy.Src("same"))
	resources.Remove[vecopy.Dest](in.Resources)
	resources.Insert(in.Resources, vecopy.Dest("same"))

	_, current, err := DiscoverCurrent(context.Background(), in)
	require.NoError(t, err)
	_, goal, err := DiscoverGoal(context.Background(), in)
	require.NoError(t, err)

	res, _, err := ApplyExec(context.Background(), in, current, goal, false)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())
	assert.Contains(t, res.Succeeded, item.Id("vec_copy"))
}

func TestCleanResetsDest(t *testing.T) {
	in := singleVecCopyInput(t)
	resources.Remove[vecopy.Dest](in.Resources)
	resources.Insert(in.Resources, vecopy.Dest("leftover"))

	_, current, err := DiscoverCurrent(context.Background(), in)
	require.NoError(t, err)

	res, _, err := Clean(context.Background(), in, current, false)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())

	dest, _ := resources.Get[vecopy.Dest](in.Resources)
	assert.Empty(t, dest)
}

func TestCleanDryRunDoesNotMutateResources(t *testing.T) {
	in := singleVecCopyInput(t)
	resources.Remove[vecopy.Dest](in.Resources)
	resources.Insert(in.Resources, vecopy.Dest("leftover"))

	_, current, err := DiscoverCurrent(context.Background(), in)
	require.NoError(t, err)

	res, _, err := Clean(context.Background(), in, current, true)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())

	dest, _ := resources.Get[vecopy.Dest](in.Resources)
	assert.Equal(t, []byte("leftover"), []byte(dest))
}
