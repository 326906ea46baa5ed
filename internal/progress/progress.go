// Package progress implements the Progress Hub (component H): one
// ProgressTracker per item and a single multi-producer channel carrying
// (ItemId, ProgressUpdate) messages to whatever output adapter the
// command was built with. The hub is advisory — a failure reporting
// progress never aborts execution.
package progress

import (
	"sync"

	"github.com/peaceflow/peace/internal/item"
)

// Status is the lifecycle state of one item's progress tracker. It only
// ever moves forward: Initialized -> Running -> Complete{...}.
type Status int

const (
	Initialized Status = iota
	Queued
	Running
	CompleteSuccess
	CompleteFail
	CompleteInterrupted
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case Queued:
		return "Queued"
	case Running:
		return "Running"
	case CompleteSuccess:
		return "Complete(Success)"
	case CompleteFail:
		return "Complete(Fail)"
	case CompleteInterrupted:
		return "Complete(Interrupted)"
	default:
		return "Unknown"
	}
}

// terminal reports whether s is one of the Complete{...} variants.
func (s Status) terminal() bool {
	return s == CompleteSuccess || s == CompleteFail || s == CompleteInterrupted
}

// Tracker holds one item's progress state: status, units completed so
// far, and an optional unit limit (bytes, file count, ...) supplied by
// Item.ApplyCheck.
type Tracker struct {
	mu         sync.Mutex
	ItemID     item.Id
	status     Status
	unitsDone  uint64
	limit      *uint64
}

// NewTracker returns a tracker in the Initialized state.
func NewTracker(id item.Id) *Tracker {
	return &Tracker{ItemID: id, status: Initialized}
}

// Status returns the current status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Units returns units done and the limit (ok=false if no limit known).
func (t *Tracker) Units() (done uint64, limit uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit == nil {
		return t.unitsDone, 0, false
	}
	return t.unitsDone, *t.limit, true
}

// transition moves the tracker to status s, recording unitsDone/limit
// alongside it. It panics on regression (monotone progress) since that
// indicates a bug in the calling block, not a condition a user can
// trigger.
func (t *Tracker) transition(s Status, unitsDone uint64, limit *uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.terminal() {
		panic("progress: tracker " + string(t.ItemID) + " regressed after reaching a terminal state")
	}
	if s == Initialized && t.status != Initialized {
		panic("progress: tracker " + string(t.ItemID) + " regressed to Initialized")
	}
	t.status = s
	t.unitsDone = unitsDone
	if limit != nil {
		t.limit = limit
	}
}

// Update is one message sent over the Hub's channel.
type Update struct {
	ItemID    item.Id
	Status    Status
	UnitsDone uint64
	Limit     *uint64
}

// Hub multiplexes every item's progress updates onto one channel for the
// output adapter to drain.
type Hub struct {
	trackers map[item.Id]*Tracker
	ch       chan Update
	mu       sync.Mutex
}

// NewHub creates a Hub with the given channel buffer size.
func NewHub(bufferSize int) *Hub {
	return &Hub{
		trackers: make(map[item.Id]*Tracker),
		ch:       make(chan Update, bufferSize),
	}
}

// Updates returns the channel consumers should drain.
func (h *Hub) Updates() <-chan Update { return h.ch }

// Close closes the update channel. Call once all producers are done.
func (h *Hub) Close() { close(h.ch) }

// Tracker returns (creating if necessary) the tracker for id.
func (h *Hub) Tracker(id item.Id) *Tracker {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.trackers[id]
	if !ok {
		t = NewTracker(id)
		h.trackers[id] = t
	}
	return t
}

// emit transitions id's tracker and best-effort sends an Update. A full
// channel drops the update rather than blocking the item task — progress
// reporting must never be able to stall execution.
func (h *Hub) emit(id item.Id, s Status, unitsDone uint64, limit *uint64) {
	t := h.Tracker(id)
	t.transition(s, unitsDone, limit)
	select {
	case h.ch <- Update{ItemID: id, Status: s, UnitsDone: unitsDone, Limit: limit}:
	default:
	}
}

func (h *Hub) Queue(id item.Id)   { h.emit(id, Queued, 0, nil) }
// Start marks id Running. A tracker left terminal by an earlier block of
// the same command is replaced by a fresh one, so each block's run of an
// item goes Initialized -> Running -> Complete on its own tracker.
func (h *Hub) Start(id item.Id, limit *uint64) {
	h.mu.Lock()
	if t, ok := h.trackers[id]; ok && t.Status().terminal() {
		h.trackers[id] = NewTracker(id)
	}
	h.mu.Unlock()
	h.emit(id, Running, 0, limit)
}
func (h *Hub) Tick(id item.Id, unitsDone uint64, limit *uint64) {
	h.emit(id, Running, unitsDone, limit)
}
func (h *Hub) Succeed(id item.Id) { h.emit(id, CompleteSuccess, 0, nil) }
func (h *Hub) Fail(id item.Id)    { h.emit(id, CompleteFail, 0, nil) }
func (h *Hub) Interrupt(id item.Id) { h.emit(id, CompleteInterrupted, 0, nil) }

// Snapshot returns every tracker's current status, keyed by item id, for
// the final outcome table.
func (h *Hub) Snapshot() map[item.Id]Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[item.Id]Status, len(h.trackers))
	for id, t := range h.trackers {
		out[id] = t.Status()
	}
	return out
}
