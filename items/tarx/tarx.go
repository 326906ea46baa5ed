// Package tarx implements an item that extracts a tar archive into a
// destination directory, the Go analogue of the source framework's tar_x
// item spec (original_source/item_specs/tar_x): current state walks the
// destination directory collecting each file's relative path and mtime
// (TarXStateCurrentFnSpec::files_extracted); goal state is "the archive's
// entries, at the archive's own mtimes"; apply extracts whatever the diff
// says changed.
package tarx

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/resources"
)

// Params names the source archive and destination directory.
type Params struct {
	TarPath string `yaml:"tar_path"`
	Dest    string `yaml:"dest"`
}

// FileMetadata is one extracted (or to-be-extracted) file's relative path
// and modification time, in Unix seconds (matching the original's
// mtime_secs field).
type FileMetadata struct {
	Path  string
	MTime int64
}

// State is the set of files present at Dest (or that the archive would
// produce at Dest), keyed implicitly by FileMetadata.Path.
type State struct {
	Files []FileMetadata
}

// StateDiff lists paths that need extracting (new or changed) and paths
// present at Dest that the archive no longer contains.
type StateDiff struct {
	ToExtract []string
	ToRemove  []string
}

// Spec implements item.Spec[Params, State, StateDiff].
type Spec struct {
	id item.Id
}

// New returns a tarx item with the given id.
func New(id item.Id) *Spec { return &Spec{id: id} }

func (s *Spec) Id() item.Id                 { return s.id }
func (s *Spec) Setup(_ *resources.Map) error { return nil }
func (s *Spec) Data() item.BorrowSet         { return item.BorrowSet{} }

// filesExtracted walks dest collecting each regular file's relative path
// and mtime, mirroring files_extracted in the original.
func filesExtracted(dest string) ([]FileMetadata, error) {
	info, err := os.Stat(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tarx: dest %q is not a directory", dest)
	}
	var out []FileMetadata
	err = filepath.WalkDir(dest, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dest, path)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, FileMetadata{Path: filepath.ToSlash(rel), MTime: fi.ModTime().Unix()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func openArchive(tarPath string) (*tar.Reader, io.Closer, error) {
	f, err := os.Open(tarPath)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(tarPath, ".gz") || strings.HasSuffix(tarPath, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return tar.NewReader(gz), f, nil
	}
	return tar.NewReader(f), f, nil
}

// archiveEntries lists the archive's regular-file entries as the
// FileMetadata the extracted tree would end up with.
func archiveEntries(tarPath string) ([]FileMetadata, error) {
	if _, err := os.Stat(tarPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	tr, closer, err := openArchive(tarPath)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var out []FileMetadata
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		out = append(out, FileMetadata{Path: hdr.Name, MTime: hdr.ModTime.Unix()})
	}
	return out, nil
}

func (s *Spec) StateCurrent(_ context.Context, p Params, _ *resources.Map) (*State, error) {
	files, err := filesExtracted(p.Dest)
	if err != nil {
		return nil, err
	}
	return &State{Files: files}, nil
}

func (s *Spec) StateGoal(_ context.Context, p Params, _ *resources.Map) (*State, error) {
	if _, err := os.Stat(p.TarPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	files, err := archiveEntries(p.TarPath)
	if err != nil {
		return nil, err
	}
	return &State{Files: files}, nil
}

func byPath(files []FileMetadata) map[string]int64 {
	m := make(map[string]int64, len(files))
	for _, f := range files {
		m[f.Path] = f.MTime
	}
	return m
}

func (s *Spec) StateDiff(_ context.Context, _ Params, _ *resources.Map, current, goal *State) (*StateDiff, error) {
	var curFiles, goalFiles []FileMetadata
	if current != nil {
		curFiles = current.Files
	}
	if goal != nil {
		goalFiles = goal.Files
	}
	curByPath := byPath(curFiles)
	goalByPath := byPath(goalFiles)

	diff := &StateDiff{}
	for path, mtime := range goalByPath {
		if curMtime, ok := curByPath[path]; !ok || curMtime != mtime {
			diff.ToExtract = append(diff.ToExtract, path)
		}
	}
	for path := range curByPath {
		if _, ok := goalByPath[path]; !ok {
			diff.ToRemove = append(diff.ToRemove, path)
		}
	}
	return diff, nil
}

func (s *Spec) ApplyCheck(_ context.Context, _ Params, _ *resources.Map, _, _ *State, diff *StateDiff) (item.ApplyCheck, error) {
	if diff == nil || (len(diff.ToExtract) == 0 && len(diff.ToRemove) == 0) {
		return item.ExecNotRequired(), nil
	}
	limit := uint64(len(diff.ToExtract) + len(diff.ToRemove))
	return item.ExecRequired(&limit), nil
}

func (s *Spec) apply(ctx context.Context, p Params, diff *StateDiff, cleaning bool) (State, error) {
	if diff != nil {
		for _, rel := range diff.ToRemove {
			_ = os.Remove(filepath.Join(p.Dest, filepath.FromSlash(rel)))
		}
	}
	if cleaning {
		if err := os.RemoveAll(p.Dest); err != nil {
			return State{}, err
		}
		return State{}, nil
	}
	if diff != nil && len(diff.ToExtract) > 0 {
		want := make(map[string]bool, len(diff.ToExtract))
		for _, p := range diff.ToExtract {
			want[p] = true
		}
		tr, closer, err := openArchive(p.TarPath)
		if err != nil {
			return State{}, err
		}
		defer closer.Close()
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return State{}, err
			}
			if hdr.Typeflag != tar.TypeReg || !want[hdr.Name] {
				continue
			}
			dest := filepath.Join(p.Dest, filepath.FromSlash(hdr.Name))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return State{}, err
			}
			f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return State{}, err
			}
			_, cerr := io.Copy(f, tr)
			f.Close()
			if cerr != nil {
				return State{}, cerr
			}
			mtime := time.Unix(hdr.ModTime.Unix(), 0)
			_ = os.Chtimes(dest, mtime, mtime)
		}
	}
	files, err := filesExtracted(p.Dest)
	if err != nil {
		return State{}, err
	}
	return State{Files: files}, nil
}

func (s *Spec) Apply(ctx context.Context, p Params, _ *resources.Map, _, _ *State, diff *StateDiff, cleaning bool) (State, error) {
	return s.apply(ctx, p, diff, cleaning)
}

func (s *Spec) ApplyDry(_ context.Context, _ Params, _ *resources.Map, _, goal *State, _ *StateDiff, _ bool) (State, error) {
	if goal != nil {
		return *goal, nil
	}
	return State{}, nil
}

// StateClean reports the goal state of a torn-down tarx: no files at
// all. The actual os.RemoveAll happens in Apply, gated by ApplyCheck.
func (s *Spec) StateClean(_ context.Context, _ Params, _ *resources.Map) (*State, error) {
	return &State{}, nil
}

func (s *Spec) TryStateCurrent(ctx context.Context, p *Params, res *resources.Map) (*State, error) {
	if p == nil {
		return nil, nil
	}
	return s.StateCurrent(ctx, *p, res)
}

// Rt builds the type-erased adapter.
func (s *Spec) Rt(resolver *params.Resolver, pspec params.Spec[Params]) item.Rt {
	return item.New[Params, State, StateDiff](s, resolver, pspec)
}
