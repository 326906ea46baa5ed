package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/item"
)

func TestStatePathForCurrentAndGoal(t *testing.T) {
	path, err := statePathFor("deploy", "/flow/states_current.yaml", "/flow/states_goal.yaml", "current")
	require.NoError(t, err)
	assert.Equal(t, "/flow/states_current.yaml", path)

	path, err = statePathFor("deploy", "/flow/states_current.yaml", "/flow/states_goal.yaml", "goal")
	require.NoError(t, err)
	assert.Equal(t, "/flow/states_goal.yaml", path)
}

func TestStatePathForRejectsUnknownDocument(t *testing.T) {
	_, err := statePathFor("deploy", "/cur", "/goal", "bogus")
	assert.ErrorContains(t, err, `unknown document "bogus" for flow "deploy"`)
}

func TestToStatesReKeysByItemId(t *testing.T) {
	states := toStates(map[string]any{"source": map[string]any{"a": 1}})
	v, ok := states[item.Id("source")]
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": 1}, v)
}
