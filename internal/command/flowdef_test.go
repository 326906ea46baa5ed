package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/cmdctx"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
)

func TestBuildItemsWiresFixedReferenceFlow(t *testing.T) {
	items := buildItems(params.NewResolver(nil))
	require.Len(t, items, 6)

	byID := make(map[item.Id]cmdctx.ItemDef, len(items))
	for _, def := range items {
		byID[def.Rt.Id()] = def
	}

	order := []item.Id{"source", "prepare", "archive", "fetch", "artifact", "render"}
	for _, id := range order {
		_, ok := byID[id]
		assert.Truef(t, ok, "missing item %q", id)
	}

	assert.Empty(t, byID["source"].DependsOn)
	assert.Equal(t, []item.Id{"source"}, byID["prepare"].DependsOn)
	assert.Equal(t, []item.Id{"prepare"}, byID["archive"].DependsOn)
	assert.Equal(t, []item.Id{"archive"}, byID["fetch"].DependsOn)
	assert.Equal(t, []item.Id{"fetch"}, byID["artifact"].DependsOn)
	assert.Equal(t, []item.Id{"artifact"}, byID["render"].DependsOn)
}
