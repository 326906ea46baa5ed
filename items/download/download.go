// Package download implements an item that fetches a URL to a local
// path, the Go analogue of the source framework's download example
// (original_source/examples/download.rs): FileState tracks length and
// ETag so discovery can tell "already downloaded and unchanged" apart
// from "needs a fetch" without re-reading the whole file.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/docker/go-units"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/resources"
	"github.com/peaceflow/peace/internal/util"
)

// inMemoryContentsMax mirrors IN_MEMORY_CONTENTS_MAX from the original:
// responses at or under this size are read fully into State.Contents so a
// diff can be byte-exact; larger responses are tracked by length/ETag
// only.
const inMemoryContentsMax = 1024

// Params names the remote URL and local destination path.
type Params struct {
	URL  string `yaml:"url"`
	Dest string `yaml:"dest"`
}

// FileState is a downloaded (or remote, pre-download) file's identity:
// its length, its ETag if the server supplied one, and its full contents
// when small enough to compare directly.
type FileState struct {
	Length   int64
	ETag     string
	Contents []byte
}

// FileStateDiff reports whether length or ETag disagree.
type FileStateDiff struct {
	Differs bool
}

// Spec implements item.Spec[Params, FileState, FileStateDiff].
type Spec struct {
	id     item.Id
	Client *http.Client
}

// New returns a download item with the given id, using http.DefaultClient
// unless overridden via s.Client.
func New(id item.Id) *Spec { return &Spec{id: id, Client: http.DefaultClient} }

func (s *Spec) Id() item.Id                 { return s.id }
func (s *Spec) Setup(_ *resources.Map) error { return nil }
func (s *Spec) Data() item.BorrowSet         { return item.BorrowSet{} }

func (s *Spec) StateCurrent(_ context.Context, p Params, _ *resources.Map) (*FileState, error) {
	info, err := os.Stat(p.Dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	st := &FileState{Length: info.Size()}
	if info.Size() <= inMemoryContentsMax {
		b, err := os.ReadFile(p.Dest)
		if err != nil {
			return nil, err
		}
		st.Contents = b
	}
	return st, nil
}

func (s *Spec) StateGoal(ctx context.Context, p Params, _ *resources.Map) (*FileState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: HEAD %s: %w", p.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download: HEAD %s: status %s", p.URL, resp.Status)
	}
	st := &FileState{Length: resp.ContentLength, ETag: resp.Header.Get("ETag")}
	if resp.ContentLength >= 0 && resp.ContentLength <= inMemoryContentsMax {
		getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
		if err != nil {
			return nil, err
		}
		getResp, err := s.Client.Do(getReq)
		if err != nil {
			return nil, err
		}
		defer getResp.Body.Close()
		b, err := io.ReadAll(getResp.Body)
		if err != nil {
			return nil, err
		}
		st.Contents = b
		st.Length = int64(len(b))
	}
	return st, nil
}

func (s *Spec) StateDiff(_ context.Context, _ Params, _ *resources.Map, current, goal *FileState) (*FileStateDiff, error) {
	if current == nil || goal == nil {
		return &FileStateDiff{Differs: current != goal}, nil
	}
	if current.ETag != "" && goal.ETag != "" {
		return &FileStateDiff{Differs: current.ETag != goal.ETag}, nil
	}
	if current.Contents != nil && goal.Contents != nil {
		return &FileStateDiff{Differs: string(current.Contents) != string(goal.Contents)}, nil
	}
	return &FileStateDiff{Differs: current.Length != goal.Length}, nil
}

func (s *Spec) ApplyCheck(_ context.Context, _ Params, _ *resources.Map, _, goal *FileState, diff *FileStateDiff) (item.ApplyCheck, error) {
	if diff == nil || !diff.Differs {
		return item.ExecNotRequired(), nil
	}
	var limit *uint64
	if goal != nil && goal.Length >= 0 {
		limit = util.Ref(uint64(goal.Length))
	}
	return item.ExecRequired(limit), nil
}

func (s *Spec) Apply(ctx context.Context, p Params, _ *resources.Map, _, _ *FileState, _ *FileStateDiff, cleaning bool) (FileState, error) {
	if cleaning {
		if err := os.Remove(p.Dest); err != nil && !os.IsNotExist(err) {
			return FileState{}, err
		}
		return FileState{}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return FileState{}, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return FileState{}, fmt.Errorf("download: GET %s: %w", p.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return FileState{}, fmt.Errorf("download: GET %s: status %s", p.URL, resp.Status)
	}

	f, err := os.Create(p.Dest)
	if err != nil {
		return FileState{}, err
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return FileState{}, fmt.Errorf("download: writing %s (%s so far): %w", p.Dest, units.HumanSize(float64(n)), err)
	}

	st := FileState{Length: n, ETag: resp.Header.Get("ETag")}
	if n <= inMemoryContentsMax {
		b, err := os.ReadFile(p.Dest)
		if err == nil {
			st.Contents = b
		}
	}
	return st, nil
}

func (s *Spec) ApplyDry(_ context.Context, _ Params, _ *resources.Map, _, goal *FileState, _ *FileStateDiff, _ bool) (FileState, error) {
	if goal != nil {
		return *goal, nil
	}
	return FileState{}, nil
}

// StateClean reports the goal state of a cleaned download: no file.
// The actual os.Remove happens in Apply, gated by ApplyCheck.
func (s *Spec) StateClean(_ context.Context, _ Params, _ *resources.Map) (*FileState, error) {
	return &FileState{}, nil
}

func (s *Spec) TryStateCurrent(ctx context.Context, p *Params, res *resources.Map) (*FileState, error) {
	if p == nil {
		return nil, nil
	}
	return s.StateCurrent(ctx, *p, res)
}

// Rt builds the type-erased adapter.
func (s *Spec) Rt(resolver *params.Resolver, pspec params.Spec[Params]) item.Rt {
	return item.New[Params, FileState, FileStateDiff](s, resolver, pspec)
}
