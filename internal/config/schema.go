package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema wraps a compiled JSON Schema used to validate a merged Params
// map before it reaches the params resolver. Apps that want config
// validation supply a schema document; apps that don't can pass a nil
// *Schema anywhere one is accepted.
type Schema struct {
	compiled *jsonschema.Schema
}

// CompileSchema compiles a JSON Schema document (as bytes, draft
// auto-detected) for later use with Validate.
func CompileSchema(name string, document []byte) (*Schema, error) {
	var v any
	if err := json.Unmarshal(document, &v); err != nil {
		return nil, fmt.Errorf("config: invalid schema json for %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, v); err != nil {
		return nil, fmt.Errorf("config: failed to add schema resource %s: %w", name, err)
	}
	compiled, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("config: failed to compile schema %s: %w", name, err)
	}
	return &Schema{compiled: compiled}, nil
}

// Validate checks params against the schema. A nil Schema always
// succeeds, so callers without a schema can validate unconditionally.
func (s *Schema) Validate(params Params) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	// jsonschema operates on plain JSON-shaped values (map[string]any,
	// []any, string, float64, bool, nil); round-trip through JSON to
	// normalize YAML's richer type set (e.g. map[interface{}]interface{}
	// from older decoders, or int vs float64).
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("config: failed to marshal params for validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: failed to unmarshal params for validation: %w", err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("config: params failed schema validation: %w", err)
	}
	return nil
}
