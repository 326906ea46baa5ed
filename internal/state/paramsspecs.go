package state

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/peaceflow/peace/internal/errs"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/version"
)

// ParamsSpecs is the decoded params_specs.yaml: item id to the raw,
// generically-decoded ParamsSpec payload for that item (a literal value,
// which the resolver decodes for items whose Spec kind is Stored).
type ParamsSpecs struct {
	byID map[string]any
}

// Lookup implements params.StoredLookup.
func (s *ParamsSpecs) Lookup(itemID string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.byID[itemID]
	return v, ok
}

// Ids returns the item ids that have a stored spec.
func (s *ParamsSpecs) Ids() []string {
	out := make([]string, 0, len(s.byID))
	for id := range s.byID {
		out = append(out, id)
	}
	return out
}

// Set stores (or overwrites) the raw spec payload for itemID, used when
// merging specs provided this run with what's on disk.
func (s *ParamsSpecs) Set(itemID string, raw any) {
	if s.byID == nil {
		s.byID = make(map[string]any)
	}
	s.byID[itemID] = raw
}

// ReadParamsSpecs loads params_specs.yaml. Returns *NotExist if absent,
// which internal/cmdctx treats as an empty set of stored specs.
func ReadParamsSpecs(path string) (*ParamsSpecs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotExist{Path: path}
		}
		return nil, &errs.DeserializeError{Path: path, Message: "read failed", Cause: err}
	}
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, deserializeErrorWithSpan(path, raw, err)
	}
	if err := version.SchemaCompatible(schemaConstraint, doc.SchemaVersion); err != nil {
		return nil, &errs.DeserializeError{Path: path, Message: err.Error(), Cause: err}
	}
	return &ParamsSpecs{byID: doc.Items}, nil
}

// WriteParamsSpecs persists specs atomically.
func WriteParamsSpecs(path string, specs *ParamsSpecs) error {
	doc := document{SchemaVersion: SchemaVersion, Items: specs.byID}
	if doc.Items == nil {
		doc.Items = map[string]any{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return &errs.SerializeError{Path: path, Cause: err}
	}
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return &errs.SerializeError{Path: path, Cause: err}
	}
	_ = enc.Close()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return &errs.SerializeError{Path: path, Cause: err}
	}
	return os.Rename(tmp, path)
}

// ValidateCoverage checks spec §8 invariant 2: every item in the flow has
// exactly one spec, and there are no orphan specs.
func ValidateCoverage(flowItemIDs []item.Id, specs *ParamsSpecs) error {
	haveSpec := make(map[string]bool, len(specs.byID))
	for id := range specs.byID {
		haveSpec[id] = true
	}
	var missing []string
	inFlow := make(map[string]bool, len(flowItemIDs))
	for _, id := range flowItemIDs {
		inFlow[string(id)] = true
		if !haveSpec[string(id)] {
			missing = append(missing, string(id))
		}
	}
	var orphans []string
	for id := range specs.byID {
		if !inFlow[id] {
			orphans = append(orphans, id)
		}
	}
	if len(missing) > 0 || len(orphans) > 0 {
		return &errs.ParamsSpecsMismatch{ItemsMissingSpec: missing, SpecsWithNoItem: orphans}
	}
	return nil
}
