package state

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendHistoryAssignsIDAndAppends(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, AppendHistory(dir, HistoryEntry{
		Time:    time.Now(),
		Command: "apply",
		Outcome: "complete",
	}))
	require.NoError(t, AppendHistory(dir, HistoryEntry{
		Time:    time.Now(),
		Command: "diff",
		Outcome: "complete",
	}))

	f, err := os.Open(filepath.Join(dir, "history", "log.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines []HistoryEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e HistoryEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		lines = append(lines, e)
	}
	require.Len(t, lines, 2)
	assert.NotEqual(t, lines[0].ID, lines[1].ID)
	assert.Equal(t, "apply", lines[0].Command)
	assert.Equal(t, "diff", lines[1].Command)
}

func TestAppendHistoryPreservesProvidedID(t *testing.T) {
	dir := t.TempDir()
	entry := HistoryEntry{ID: uuid.MustParse("6f1c2a8e-4b7d-4e2a-9c3f-1a2b3c4d5e6f"), Command: "clean", Outcome: "complete"}
	require.NoError(t, AppendHistory(dir, entry))

	raw, err := os.ReadFile(filepath.Join(dir, "history", "log.jsonl"))
	require.NoError(t, err)
	var decoded HistoryEntry
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, entry.ID, decoded.ID)
}
