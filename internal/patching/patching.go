// Package patching applies ad hoc JSON-pointer-style overrides to a
// serialized state or params-specs document without a full
// unmarshal/remarshal round trip through Go structs. It backs the
// `peace state patch` debug command.
package patching

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// Operation is one patch step: set a path to a value, delete a path, or
// merge a value into the map at a path. Path uses sjson's dotted/indexed
// path syntax (e.g. "items.vec_copy.len").
type Operation struct {
	Op          string      `json:"op" yaml:"op"`
	Path        string      `json:"path" yaml:"path"`
	Value       interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

func isMergeMap(a any) bool {
	_, ok := a.(map[string]interface{})
	return ok
}

// mergePatch performs a JSON Merge Patch (RFC 7386) of patch into current,
// returning a new map without modifying either input. A nil value at a key
// deletes it; a map value is merged recursively; anything else overwrites.
func mergePatch(current map[string]interface{}, patch map[string]interface{}) map[string]interface{} {
	if len(patch) == 0 {
		return current
	}
	out := maps.Clone(current)
	if out == nil {
		out = make(map[string]interface{})
	}
	for k, patchValue := range patch {
		switch {
		case patchValue == nil:
			delete(out, k)
		case isMergeMap(patchValue):
			patchMap := patchValue.(map[string]interface{})
			existing, _ := out[k].(map[string]interface{})
			out[k] = mergePatch(existing, patchMap)
		default:
			out[k] = patchValue
		}
	}
	return out
}

// ValidatePatchTemplate checks that a templated patch list at least
// parses as a Go template with sprig functions available.
func ValidatePatchTemplate(content string) error {
	if _, err := template.New("").Funcs(sprig.FuncMap()).Parse(content); err != nil {
		return fmt.Errorf("patching: failed to parse template: %w", err)
	}
	return nil
}

// yamlToJSON re-encodes an arbitrary YAML-shaped document (the decoded
// form of a states_*.yaml/params_specs.yaml file) as JSON so sjson/gjson
// can operate on it by path.
func yamlToJSON(doc any) ([]byte, error) {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("patching: failed to marshal document: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("patching: failed to re-read document: %w", err)
	}
	return json.Marshal(generic)
}

// Apply renders rawTemplate (a Go template producing a YAML list of
// Operations, with sprig functions and doc's fields available under
// `.Doc`) against doc, then applies each operation in order via
// sjson.SetBytes/DeleteBytes, returning the patched document as a generic
// map ready for YAML re-encoding.
func Apply(doc any, rawTemplate string) (map[string]any, error) {
	tmpl, err := template.New("").Funcs(sprig.FuncMap()).Parse(rawTemplate)
	if err != nil {
		return nil, fmt.Errorf("patching: failed to parse template: %w", err)
	}

	jsonInput, err := yamlToJSON(doc)
	if err != nil {
		return nil, err
	}
	var docAsMap map[string]any
	if err := json.Unmarshal(jsonInput, &docAsMap); err != nil {
		return nil, fmt.Errorf("patching: document is not a map: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, map[string]any{"Doc": docAsMap}); err != nil {
		return nil, fmt.Errorf("patching: failed to execute template: %w", err)
	}

	rendered := strings.TrimSpace(buf.String())
	if rendered == "" {
		return docAsMap, nil
	}

	var ops []Operation
	dec := yaml.NewDecoder(strings.NewReader(rendered))
	dec.KnownFields(true)
	if err := dec.Decode(&ops); err != nil {
		slog.Debug("patching: raw template output", "raw", rendered)
		return nil, fmt.Errorf("patching: failed to decode patch operations: %w", err)
	}

	for i, op := range ops {
		desc := op.Description
		if desc != "" {
			desc = " (" + desc + ")"
		}
		slog.Info(fmt.Sprintf("applying patch to %s%s", op.Path, desc), "op", op.Op)
		switch op.Op {
		case "set":
			jsonInput, err = sjson.SetBytes(jsonInput, op.Path, op.Value)
		case "delete":
			jsonInput, err = sjson.DeleteBytes(jsonInput, op.Path)
		case "merge":
			err = applyMerge(&jsonInput, op.Path, op.Value)
		default:
			err = fmt.Errorf("unknown patch operation %q", op.Op)
		}
		if err != nil {
			return nil, fmt.Errorf("patching: operation %d (%s %s): %w", i+1, op.Op, op.Path, err)
		}
	}

	var out map[string]any
	if err := json.Unmarshal(jsonInput, &out); err != nil {
		return nil, fmt.Errorf("patching: failed to unmarshal patched document: %w", err)
	}
	return out, nil
}

// applyMerge reads the map currently at path, applies value as an RFC 7386
// merge patch on top of it, and writes the result back to path.
func applyMerge(jsonInput *[]byte, path string, value any) error {
	patch, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("merge operation value at %q must be a map", path)
	}
	existing := map[string]interface{}{}
	if result := gjson.GetBytes(*jsonInput, path); result.IsObject() {
		existing, _ = result.Value().(map[string]interface{})
	}
	merged := mergePatch(existing, patch)
	out, err := sjson.SetBytes(*jsonInput, path, merged)
	if err != nil {
		return err
	}
	*jsonInput = out
	return nil
}

// Get reads a single path out of doc using gjson, useful for `peace state
// get <path>` style introspection without decoding the whole document.
func Get(doc any, path string) (gjson.Result, error) {
	raw, err := yamlToJSON(doc)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(raw, path), nil
}
