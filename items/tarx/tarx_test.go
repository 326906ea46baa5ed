package tarx

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/item"
)

func writeTestArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	tw := tar.NewWriter(f)
	defer tw.Close()

	mtime := time.Unix(1_700_000_000, 0)
	for name, content := range files {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: mtime,
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
}

func TestStateGoalMissingArchiveIsNil(t *testing.T) {
	s := New(item.MustId("tarx"))
	p := Params{TarPath: filepath.Join(t.TempDir(), "missing.tar")}

	goal, err := s.StateGoal(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Nil(t, goal)
}

func TestStateGoalListsArchiveEntries(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "archive.tar")
	writeTestArchive(t, tarPath, map[string]string{"a.txt": "hello", "nested/b.txt": "world"})

	s := New(item.MustId("tarx"))
	goal, err := s.StateGoal(context.Background(), Params{TarPath: tarPath}, nil)
	require.NoError(t, err)
	require.Len(t, goal.Files, 2)
}

func TestApplyExtractsFilesAndStateCurrentReflectsThem(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "archive.tar")
	destDir := filepath.Join(dir, "dest")
	writeTestArchive(t, tarPath, map[string]string{"a.txt": "hello", "nested/b.txt": "world"})

	s := New(item.MustId("tarx"))
	p := Params{TarPath: tarPath, Dest: destDir}

	current, err := s.StateCurrent(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Empty(t, current.Files)

	goal, err := s.StateGoal(context.Background(), p, nil)
	require.NoError(t, err)

	diff, err := s.StateDiff(context.Background(), p, nil, current, goal)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "nested/b.txt"}, diff.ToExtract)
	assert.Empty(t, diff.ToRemove)

	check, err := s.ApplyCheck(context.Background(), p, nil, current, goal, diff)
	require.NoError(t, err)
	require.True(t, check.Required())
	limit, ok := check.ProgressLimit()
	require.True(t, ok)
	assert.Equal(t, uint64(2), limit)

	applied, err := s.Apply(context.Background(), p, nil, current, goal, diff, false)
	require.NoError(t, err)
	assert.Len(t, applied.Files, 2)

	raw, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))

	currentAfter, err := s.StateCurrent(context.Background(), p, nil)
	require.NoError(t, err)
	diffAfter, err := s.StateDiff(context.Background(), p, nil, currentAfter, goal)
	require.NoError(t, err)
	assert.Empty(t, diffAfter.ToExtract)
	assert.Empty(t, diffAfter.ToRemove)
}

func TestApplyRemovesFilesNoLongerInArchive(t *testing.T) {
	dir := t.TempDir()
	destDir := filepath.Join(dir, "dest")
	require.NoError(t, os.MkdirAll(destDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "stale.txt"), []byte("old"), 0o644))

	tarPath := filepath.Join(dir, "archive.tar")
	writeTestArchive(t, tarPath, map[string]string{"new.txt": "fresh"})

	s := New(item.MustId("tarx"))
	p := Params{TarPath: tarPath, Dest: destDir}

	current, err := s.StateCurrent(context.Background(), p, nil)
	require.NoError(t, err)
	goal, err := s.StateGoal(context.Background(), p, nil)
	require.NoError(t, err)
	diff, err := s.StateDiff(context.Background(), p, nil, current, goal)
	require.NoError(t, err)
	assert.Contains(t, diff.ToRemove, "stale.txt")

	_, err = s.Apply(context.Background(), p, nil, current, goal, diff, false)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(destDir, "stale.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestStateCleanReportsEmptyGoalWithoutRemovingDest(t *testing.T) {
	dir := t.TempDir()
	destDir := filepath.Join(dir, "dest")
	require.NoError(t, os.MkdirAll(destDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "f.txt"), []byte("x"), 0o644))

	s := New(item.MustId("tarx"))
	goal, err := s.StateClean(context.Background(), Params{Dest: destDir}, nil)
	require.NoError(t, err)
	require.NotNil(t, goal)
	assert.Empty(t, goal.Files)

	_, err = os.Stat(destDir)
	assert.NoError(t, err)
}

func TestCleanApplyRemovesDestTree(t *testing.T) {
	dir := t.TempDir()
	destDir := filepath.Join(dir, "dest")
	require.NoError(t, os.MkdirAll(destDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "f.txt"), []byte("x"), 0o644))

	s := New(item.MustId("tarx"))
	p := Params{Dest: destDir}

	current, err := s.StateCurrent(context.Background(), p, nil)
	require.NoError(t, err)
	goal, err := s.StateClean(context.Background(), p, nil)
	require.NoError(t, err)
	diff, err := s.StateDiff(context.Background(), p, nil, current, goal)
	require.NoError(t, err)

	check, err := s.ApplyCheck(context.Background(), p, nil, current, goal, diff)
	require.NoError(t, err)
	require.True(t, check.Required())

	_, err = s.Apply(context.Background(), p, nil, current, goal, diff, true)
	require.NoError(t, err)

	_, err = os.Stat(destDir)
	assert.True(t, os.IsNotExist(err))
}
