package cmdblock

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peaceflow/peace/internal/item"
)

func TestResultCollateOK(t *testing.T) {
	r := newResult()
	r.collateOK(item.Id("vec_copy"), "state-value")

	assert.False(t, r.HasErrors())
	assert.Equal(t, "state-value", r.Values[item.Id("vec_copy")])
	assert.Equal(t, []item.Id{"vec_copy"}, r.Succeeded)
}

func TestResultCollateErr(t *testing.T) {
	r := newResult()
	r.collateErr(item.Id("shcmd"), errors.New("boom"))

	assert.True(t, r.HasErrors())
	assert.Equal(t, []item.Id{"shcmd"}, r.Failed)
	assert.EqualError(t, r.Errors["shcmd"], "boom")
}

func TestResultCollateSkipped(t *testing.T) {
	r := newResult()
	r.collateSkipped(item.Id("tarx"))
	assert.Equal(t, []item.Id{"tarx"}, r.NotAttempted)
	assert.False(t, r.HasErrors())
}

func TestResultCollateIsConcurrencySafe(t *testing.T) {
	r := newResult()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := item.Id("item")
			if n%2 == 0 {
				r.collateOK(id, n)
			} else {
				r.collateErr(id, errors.New("err"))
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.Succeeded, 25)
	assert.Len(t, r.Failed, 25)
}
