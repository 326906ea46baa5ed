package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/peaceflow/peace/internal/errs"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/version"
)

// schemaConstraint is the range of on-disk schema versions this binary
// can read. Bumped only on a breaking states_*.yaml/params_specs.yaml
// format change.
const schemaConstraint = "^1.0.0"

// SchemaVersion is the current on-disk schema version for states_*.yaml
// and params_specs.yaml, written into every file. At load time each file's
// schema_version is checked against schemaConstraint via internal/version.
const SchemaVersion = "1.0.0"

// document is the on-disk shape of every ItemId-keyed artifact: an
// envelope carrying the schema version plus a map of item id to whatever
// payload that item's own type produces.
type document struct {
	SchemaVersion string         `yaml:"schema_version"`
	Items         map[string]any `yaml:"items"`
}

// States is a decoded states_current.yaml/states_goal.yaml: item id to
// concrete State value (already dispatched through the Registry), or nil
// for items with no current/goal state.
type States map[item.Id]any

// NotExist distinguishes "file absent" from a parse failure, surfaced by
// callers as errs.StatesCurrentDiscoverRequired/StatesGoalDiscoverRequired
// rather than a DeserializeError.
type NotExist struct{ Path string }

func (e *NotExist) Error() string { return fmt.Sprintf("state: %s does not exist", e.Path) }

// ReadStates loads a states_*.yaml file and decodes each item's payload
// through reg. Returns *NotExist if the file is absent.
func ReadStates(path string, reg *Registry) (States, error) {
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

	out := make(States, len(doc.Items))
	for idStr, payload := range doc.Items {
		id, err := item.NewId(idStr)
		if err != nil {
			return nil, &errs.DeserializeError{Path: path, Message: fmt.Sprintf("invalid item id %q", idStr), Cause: err}
		}
		rt, ok := reg.Get(id)
		if !ok {
			// Item no longer in the flow graph; keep the raw payload so a
			// future registry change (or a diagnostic command) can still
			// see it, instead of silently dropping user data.
			out[id] = payload
			continue
		}
		decoded, err := rt.DecodeState(payload)
		if err != nil {
			return nil, &errs.DeserializeError{Path: path, Message: fmt.Sprintf("item %q", idStr), Cause: err}
		}
		out[id] = decoded
	}
	return out, nil
}

// WriteStates persists states atomically (write to a temp file, then
// rename), matching the teacher's StateDirectory.Persist pattern.
func WriteStates(path string, states States) error {
	doc := document{
		SchemaVersion: SchemaVersion,
		Items:         make(map[string]any, len(states)),
	}
	for id, v := range states {
		doc.Items[string(id)] = v
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
	if err := os.Rename(tmp, path); err != nil {
		return &errs.SerializeError{Path: path, Cause: err}
	}
	return nil
}

// deserializeErrorWithSpan builds the DeserializeError for a YAML decode
// error, using the first yaml.TypeError entry as the message when there is
// one. yaml.v3 reports positions only as line numbers inside that message;
// no byte offset is computed, so Span is left unset.
func deserializeErrorWithSpan(path string, raw []byte, err error) error {
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		return &errs.DeserializeError{Path: path, Message: te.Errors[0], Cause: err}
	}
	return &errs.DeserializeError{Path: path, Message: err.Error(), Cause: err}
}
