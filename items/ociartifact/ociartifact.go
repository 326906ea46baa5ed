// Package ociartifact implements an item that pulls an OCI artifact (a
// container image or a plain artifact manifest) from a registry into a
// local content directory, tracking the manifest digest as its state.
// There is no teacher or original_source precedent for this item; it
// exists purely to give the OCI client stack (oras-go, go-digest,
// image-spec) pulled in for the domain stack a concrete home, built in
// the same plain-struct-Params/State/StateDiff shape as every other item
// in this package.
package ociartifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/internal/resources"
)

// Params names the source reference ("registry/repo:tag") and the local
// directory artifacts are materialized into.
type Params struct {
	Reference string `yaml:"reference"`
	Dest      string `yaml:"dest"`
}

// State is the manifest digest currently (or desired to be) present at
// Dest.
type State struct {
	Digest    digest.Digest
	MediaType string
}

// StateDiff reports whether the digest needs to change.
type StateDiff struct {
	Differs bool
}

// Spec implements item.Spec[Params, State, StateDiff].
type Spec struct {
	id item.Id
}

// New returns an ociartifact item with the given id.
func New(id item.Id) *Spec { return &Spec{id: id} }

func (s *Spec) Id() item.Id                 { return s.id }
func (s *Spec) Setup(_ *resources.Map) error { return nil }
func (s *Spec) Data() item.BorrowSet         { return item.BorrowSet{} }

// localStore opens (creating if needed) a file-backed OCI content store
// at dest, the destination side of every oras.Copy this item performs.
func localStore(dest string) (*file.Store, error) {
	return file.New(dest)
}

func (s *Spec) StateCurrent(_ context.Context, p Params, _ *resources.Map) (*State, error) {
	fs, err := localStore(p.Dest)
	if err != nil {
		return nil, nil
	}
	defer fs.Close()

	tag := ociTag(p.Reference)
	if tag == "" {
		return nil, nil
	}
	desc, err := fs.Resolve(context.Background(), tag)
	if err != nil {
		return nil, nil
	}
	return &State{Digest: digest.Digest(desc.Digest.String()), MediaType: desc.MediaType}, nil
}

func (s *Spec) StateGoal(ctx context.Context, p Params, _ *resources.Map) (*State, error) {
	repo, err := remote.NewRepository(p.Reference)
	if err != nil {
		return nil, fmt.Errorf("ociartifact: invalid reference %q: %w", p.Reference, err)
	}
	tag := ociTag(p.Reference)
	desc, err := repo.Resolve(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("ociartifact: resolve %q: %w", p.Reference, err)
	}
	if desc.MediaType == ocispec.MediaTypeImageIndex {
		child, err := firstManifestInIndex(ctx, repo, desc)
		if err != nil {
			return nil, fmt.Errorf("ociartifact: reading index for %q: %w", p.Reference, err)
		}
		desc = child
	}
	return &State{Digest: digest.Digest(desc.Digest.String()), MediaType: desc.MediaType}, nil
}

// firstManifestInIndex fetches and decodes an OCI image index, returning
// the descriptor of its first referenced manifest. Artifacts published
// as multi-platform indices resolve to that single manifest's digest as
// their tracked state, rather than the index's own (unstable across
// platform-set changes) digest.
func firstManifestInIndex(ctx context.Context, fetcher content.Fetcher, desc ocispec.Descriptor) (ocispec.Descriptor, error) {
	rc, err := fetcher.Fetch(ctx, desc)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	var idx ocispec.Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return ocispec.Descriptor{}, err
	}
	if len(idx.Manifests) == 0 {
		return ocispec.Descriptor{}, fmt.Errorf("index has no manifests")
	}
	return idx.Manifests[0], nil
}

func (s *Spec) StateDiff(_ context.Context, _ Params, _ *resources.Map, current, goal *State) (*StateDiff, error) {
	if current == nil || goal == nil {
		return &StateDiff{Differs: current != goal}, nil
	}
	return &StateDiff{Differs: current.Digest != goal.Digest}, nil
}

func (s *Spec) ApplyCheck(_ context.Context, _ Params, _ *resources.Map, _, _ *State, diff *StateDiff) (item.ApplyCheck, error) {
	if diff == nil || !diff.Differs {
		return item.ExecNotRequired(), nil
	}
	return item.ExecRequired(nil), nil
}

func (s *Spec) Apply(ctx context.Context, p Params, _ *resources.Map, _, _ *State, _ *StateDiff, _ bool) (State, error) {
	repo, err := remote.NewRepository(p.Reference)
	if err != nil {
		return State{}, fmt.Errorf("ociartifact: invalid reference %q: %w", p.Reference, err)
	}
	fs, err := localStore(p.Dest)
	if err != nil {
		return State{}, err
	}
	defer fs.Close()

	tag := ociTag(p.Reference)
	desc, err := oras.Copy(ctx, repo, tag, fs, tag, oras.DefaultCopyOptions)
	if err != nil {
		return State{}, fmt.Errorf("ociartifact: copy %q: %w", p.Reference, err)
	}
	return State{Digest: digest.Digest(desc.Digest.String()), MediaType: desc.MediaType}, nil
}

func (s *Spec) ApplyDry(_ context.Context, _ Params, _ *resources.Map, _, goal *State, _ *StateDiff, _ bool) (State, error) {
	if goal != nil {
		return *goal, nil
	}
	return State{}, nil
}

func (s *Spec) StateClean(_ context.Context, p Params, _ *resources.Map) (*State, error) {
	return nil, nil
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

// ociTag extracts the tag (or digest) portion of a reference, defaulting
// to "latest" when none is given.
func ociTag(reference string) string {
	for i := 0; i < len(reference); i++ {
		if reference[i] == '@' {
			return reference[i+1:]
		}
	}
	for i := len(reference) - 1; i >= 0; i-- {
		switch reference[i] {
		case ':':
			return reference[i+1:]
		case '/':
			return "latest"
		}
	}
	return "latest"
}
