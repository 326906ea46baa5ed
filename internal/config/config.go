// Package config loads and merges the three tiers of ambient parameters
// every command context is built from: workspace_params.yaml,
// profile_params.yaml, flow_params.yaml. These are plain user-defined
// key/value maps (unlike states_*.yaml/params_specs.yaml, they are not
// keyed by ItemId, so they live here rather than in internal/state).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// Params is a generic, user-defined key/value map, the shape every tier
// of ambient config takes.
type Params map[string]interface{}

// Load reads a single YAML params file, returning an empty Params (not an
// error) if the file does not exist.
func Load(path string) (Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Params{}, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	var out Params
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if out == nil {
		out = Params{}
	}
	return out, nil
}

// Save writes params to path as YAML.
func Save(path string, params Params) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("config: failed to create directory for %s: %w", path, err)
	}
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(params); err != nil {
		return fmt.Errorf("config: failed to encode %s: %w", path, err)
	}
	_ = enc.Close()
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Merge implements the context builder's params merge rule (spec §4.I):
// "missing keys from stored are copied in; keys present in the current
// run are not overwritten." provided takes precedence; stored fills gaps.
func Merge(stored, provided Params) (Params, error) {
	out := make(Params, len(stored)+len(provided))
	for k, v := range stored {
		out[k] = v
	}
	if err := mergo.Merge(&out, provided, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: failed to merge params: %w", err)
	}
	return out, nil
}

// ParseDuration parses a duration-valued config entry (poll intervals,
// HTTP timeouts) accepting both Go's native syntax and the more permissive
// forms go-str2duration understands (e.g. "1d", "2w").
func ParseDuration(s string) (int64, error) {
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	return int64(d), nil
}
