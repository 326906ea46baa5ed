package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/peaceflow/peace/internal/errs"
)

// HistoryEntry is one line appended to <flow>/history/log.jsonl after a
// command runs. The history directory's own format is an "external"
// concern per spec §1 (out of scope), but appending to it is in scope for
// the engine, so this lives alongside the rest of the state store rather
// than behind a narrow interface. ID disambiguates entries from commands
// that ran within the same wall-clock second, which Time alone cannot.
type HistoryEntry struct {
	ID      uuid.UUID `json:"id"`
	Time    time.Time `json:"time"`
	Command string    `json:"command"`
	Outcome string    `json:"outcome"`
}

// AppendHistory appends one JSON line to <flowDir>/history/log.jsonl,
// creating the directory if needed. It assigns entry.ID if unset.
func AppendHistory(flowDir string, entry HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	dir := filepath.Join(flowDir, "history")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errs.SerializeError{Path: dir, Cause: err}
	}
	path := filepath.Join(dir, "log.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &errs.SerializeError{Path: path, Cause: err}
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return &errs.SerializeError{Path: path, Cause: err}
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return &errs.SerializeError{Path: path, Cause: err}
	}
	return nil
}
