package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/item"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "Complete(Success)", CompleteSuccess.String())
	assert.Equal(t, "Unknown", Status(99).String())
}

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker(item.Id("vec_copy"))
	assert.Equal(t, Initialized, tr.Status())

	limit := uint64(100)
	tr.transition(Running, 0, &limit)
	assert.Equal(t, Running, tr.Status())

	tr.transition(Running, 40, nil)
	done, lim, ok := tr.Units()
	require.True(t, ok)
	assert.Equal(t, uint64(40), done)
	assert.Equal(t, uint64(100), lim)

	tr.transition(CompleteSuccess, 100, nil)
	assert.Equal(t, CompleteSuccess, tr.Status())
}

func TestTrackerPanicsOnRegressionAfterTerminal(t *testing.T) {
	tr := NewTracker(item.Id("vec_copy"))
	tr.transition(CompleteSuccess, 0, nil)
	assert.Panics(t, func() {
		tr.transition(Running, 0, nil)
	})
}

func TestHubTrackerCreatesOnce(t *testing.T) {
	h := NewHub(10)
	a := h.Tracker(item.Id("vec_copy"))
	b := h.Tracker(item.Id("vec_copy"))
	assert.Same(t, a, b)
}

func TestHubEmitSequenceAndSnapshot(t *testing.T) {
	h := NewHub(10)
	id := item.Id("vec_copy")
	limit := uint64(10)

	h.Queue(id)
	h.Start(id, &limit)
	h.Tick(id, 5, nil)
	h.Succeed(id)

	var updates []Update
	for i := 0; i < 4; i++ {
		updates = append(updates, <-h.Updates())
	}
	assert.Equal(t, Queued, updates[0].Status)
	assert.Equal(t, Running, updates[1].Status)
	assert.Equal(t, uint64(5), updates[2].UnitsDone)
	assert.Equal(t, CompleteSuccess, updates[3].Status)

	snap := h.Snapshot()
	assert.Equal(t, CompleteSuccess, snap[id])
}

func TestHubFailAndInterrupt(t *testing.T) {
	h := NewHub(10)
	id1, id2 := item.Id("a"), item.Id("b")
	h.Fail(id1)
	h.Interrupt(id2)
	<-h.Updates()
	<-h.Updates()
	snap := h.Snapshot()
	assert.Equal(t, CompleteFail, snap[id1])
	assert.Equal(t, CompleteInterrupted, snap[id2])
}

func TestHubEmitDropsOnFullChannel(t *testing.T) {
	h := NewHub(0)
	id := item.Id("vec_copy")
	assert.NotPanics(t, func() {
		h.Queue(id)
	})
	assert.Equal(t, Queued, h.Tracker(id).Status())
}
