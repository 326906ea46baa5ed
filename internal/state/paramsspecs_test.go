package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/item"
)

func TestParamsSpecsSetLookupIds(t *testing.T) {
	specs := &ParamsSpecs{}
	specs.Set("vec_copy", map[string]any{"src": "a"})

	raw, ok := specs.Lookup("vec_copy")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"src": "a"}, raw)

	_, ok = specs.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"vec_copy"}, specs.Ids())
}

func TestNilParamsSpecsLookup(t *testing.T) {
	var specs *ParamsSpecs
	_, ok := specs.Lookup("anything")
	assert.False(t, ok)
}

func TestWriteThenReadParamsSpecsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params_specs.yaml")

	specs := &ParamsSpecs{}
	specs.Set("vec_copy", map[string]any{"src": "a", "dst": "b"})
	require.NoError(t, WriteParamsSpecs(path, specs))

	out, err := ReadParamsSpecs(path)
	require.NoError(t, err)
	raw, ok := out.Lookup("vec_copy")
	require.True(t, ok)
	m := raw.(map[string]any)
	assert.Equal(t, "a", m["src"])
}

func TestReadParamsSpecsNotExist(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadParamsSpecs(filepath.Join(dir, "params_specs.yaml"))
	var notExist *NotExist
	assert.ErrorAs(t, err, &notExist)
}

func TestValidateCoverage(t *testing.T) {
	specs := &ParamsSpecs{}
	specs.Set("vec_copy", map[string]any{})
	specs.Set("orphan_item", map[string]any{})

	err := ValidateCoverage([]item.Id{"vec_copy", "shcmd"}, specs)
	assert.Error(t, err)

	specs2 := &ParamsSpecs{}
	specs2.Set("vec_copy", map[string]any{})
	assert.NoError(t, ValidateCoverage([]item.Id{"vec_copy"}, specs2))
}
