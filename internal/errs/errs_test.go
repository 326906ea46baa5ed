package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsSpecNotFoundMessage(t *testing.T) {
	err := &ParamsSpecNotFound{ItemID: "source"}
	assert.Contains(t, err.Error(), `"source"`)
}

func TestParamsSpecsMismatchMessage(t *testing.T) {
	err := &ParamsSpecsMismatch{ItemsMissingSpec: []string{"a"}, SpecsWithNoItem: []string{"b"}}
	assert.Contains(t, err.Error(), "[a]")
	assert.Contains(t, err.Error(), "[b]")
}

func TestSerializeErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &SerializeError{Path: "states_current.yaml", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "states_current.yaml")
}

func TestDeserializeErrorWithSpan(t *testing.T) {
	err := &DeserializeError{Path: "p.yaml", Span: &Span{Offset: 12, Length: 4}, Message: "bad type"}
	assert.Contains(t, err.Error(), "offset 12")
	assert.Contains(t, err.Error(), "bad type")
}

func TestDeserializeErrorWithoutSpan(t *testing.T) {
	err := &DeserializeError{Path: "p.yaml", Message: "bad type"}
	assert.NotContains(t, err.Error(), "offset")
}

func TestItemErrorUnwrap(t *testing.T) {
	cause := errors.New("exec failed")
	err := &ItemError{ItemID: "prepare", Cause: cause}
	assert.ErrorIs(t, err, cause)

	var target *ItemError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "prepare", target.ItemID)
}

func TestProfileErrors(t *testing.T) {
	assert.Contains(t, (&ProfileNotInScope{Profiles: []string{"a", "b"}}).Error(), "[a b]")
	assert.Contains(t, (&ProfileStatesCurrentNotDiscovered{Profile: "a"}).Error(), `"a"`)
}
