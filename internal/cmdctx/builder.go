// Package cmdctx implements the Context Builder (component I): the
// type-state construction sequence that turns a workspace path, profile
// and flow id into a fully wired Context — merged ambient params, the
// flow graph, the item registry, a fresh resource map, and the loaded (or
// freshly-initialized) params_specs.yaml — ready for a pipeline to run
// against. Go has no compile-time type-state encoding as convenient as
// the source framework's typestate builder structs, so this package
// expresses the same "steps must run in this order" discipline as a
// single Build method with early returns instead of a chain of types.
package cmdctx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peaceflow/peace/internal/cmdblock"
	"github.com/peaceflow/peace/internal/config"
	"github.com/peaceflow/peace/internal/flow"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/pipeline"
	"github.com/peaceflow/peace/internal/progress"
	"github.com/peaceflow/peace/internal/resources"
	"github.com/peaceflow/peace/internal/state"
)

// ItemDef is one item's registration into a flow: its already-constructed
// Rt adapter (built by the flow-definition code, which alone knows the
// concrete Params/State/StateDiff types) plus the predecessors it depends
// on.
type ItemDef struct {
	Rt        item.Rt
	DependsOn []item.Id
}

// Layout names the on-disk locations under a workspace root, mirroring
// the teacher's .score-compose-style state directory convention
// generalized to workspace/profile/flow scoping (spec §2's Workspace,
// Profile, Flow hierarchy).
type Layout struct {
	WorkspaceDir string
	Profile      item.Profile
	FlowID       item.FlowId
}

func (l Layout) profileDir() string {
	return filepath.Join(l.WorkspaceDir, ".peace", "profiles", string(l.Profile))
}

func (l Layout) flowDir() string {
	return filepath.Join(l.profileDir(), "flows", string(l.FlowID))
}

// FlowDir exposes the flow's on-disk directory for callers (e.g. the
// `init` CLI command) that need to scaffold it without going through
// Build.
func (l Layout) FlowDir() string { return l.flowDir() }

// ParamsPaths lists the three ambient params tiers' file paths, in
// workspace/profile/flow order.
func (l Layout) ParamsPaths() []string {
	return []string{l.workspaceParamsPath(), l.profileParamsPath(), l.flowParamsPath()}
}

func (l Layout) workspaceParamsPath() string { return filepath.Join(l.WorkspaceDir, ".peace", "workspace_params.yaml") }
func (l Layout) profileParamsPath() string   { return filepath.Join(l.profileDir(), "profile_params.yaml") }
func (l Layout) flowParamsPath() string      { return filepath.Join(l.flowDir(), "flow_params.yaml") }
func (l Layout) statesCurrentPath() string   { return filepath.Join(l.flowDir(), "states_current.yaml") }
func (l Layout) statesGoalPath() string      { return filepath.Join(l.flowDir(), "states_goal.yaml") }
func (l Layout) paramsSpecsPath() string     { return filepath.Join(l.flowDir(), "params_specs.yaml") }
func (l Layout) paramsSchemaPath() string    { return filepath.Join(l.WorkspaceDir, ".peace", "params_schema.json") }

// Context is everything a pipeline needs to run: the merged params, the
// flow graph and registry, a fresh resource map, a progress hub, and the
// on-disk paths a command persists to.
type Context struct {
	Layout      Layout
	Params      config.Params
	Graph       *flow.Graph
	Registry    *state.Registry
	Resources   *resources.Map
	Hub         *progress.Hub
	ParamsSpecs *state.ParamsSpecs
	Paths       pipeline.Paths
}

// Input projects Context into the narrower cmdblock.Input shape the
// block functions take.
func (c *Context) Input() cmdblock.Input {
	return cmdblock.Input{
		Graph:     c.Graph,
		Registry:  c.Registry,
		Resources: c.Resources,
		Hub:       c.Hub,
	}
}

// Build runs the context construction sequence (spec §4.I):
//  1. load and merge the three ambient params tiers
//  2. build the flow graph and item registry from items
//  3. construct a fresh resource map and call each item's Setup
//  4. load params_specs.yaml (if present), merge in providedSpecs, and
//     validate full coverage against the flow graph
func Build(ctx context.Context, layout Layout, items []ItemDef, providedSpecs map[item.Id]any) (*Context, error) {
	wsParams, err := config.Load(layout.workspaceParamsPath())
	if err != nil {
		return nil, err
	}
	profParams, err := config.Load(layout.profileParamsPath())
	if err != nil {
		return nil, err
	}
	flowParams, err := config.Load(layout.flowParamsPath())
	if err != nil {
		return nil, err
	}
	merged, err := config.Merge(wsParams, profParams)
	if err != nil {
		return nil, err
	}
	merged, err = config.Merge(merged, flowParams)
	if err != nil {
		return nil, err
	}

	schema, err := loadParamsSchema(layout.paramsSchemaPath())
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(merged); err != nil {
		return nil, err
	}

	reg := state.NewRegistry()
	gb := flow.NewBuilder()
	for _, def := range items {
		if err := reg.Register(def.Rt); err != nil {
			return nil, err
		}
		if err := gb.AddItem(def.Rt.Id()); err != nil {
			return nil, err
		}
	}
	for _, def := range items {
		for _, dep := range def.DependsOn {
			if err := gb.AddEdge(dep, def.Rt.Id()); err != nil {
				return nil, err
			}
		}
	}
	graph, err := gb.Build()
	if err != nil {
		return nil, err
	}

	res := resources.New()
	for _, def := range items {
		if err := def.Rt.Setup(res); err != nil {
			return nil, fmt.Errorf("cmdctx: item %q setup failed: %w", def.Rt.Id(), err)
		}
	}

	specs, err := loadOrInitParamsSpecs(layout.paramsSpecsPath())
	if err != nil {
		return nil, err
	}
	for id, raw := range providedSpecs {
		specs.Set(string(id), raw)
	}
	if err := state.ValidateCoverage(graph.Ids(), specs); err != nil {
		return nil, err
	}

	return &Context{
		Layout:      layout,
		Params:      merged,
		Graph:       graph,
		Registry:    reg,
		Resources:   res,
		Hub:         progress.NewHub(64),
		ParamsSpecs: specs,
		Paths: pipeline.Paths{
			FlowID:          string(layout.FlowID),
			FlowDir:         layout.flowDir(),
			StatesCurrent:   layout.statesCurrentPath(),
			StatesGoal:      layout.statesGoalPath(),
			ParamsSpecsFile: layout.paramsSpecsPath(),
		},
	}, nil
}

// loadParamsSchema reads an optional JSON Schema document governing the
// merged ambient params, returning a nil *config.Schema (which validates
// everything) when the workspace carries none.
func loadParamsSchema(path string) (*config.Schema, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return config.CompileSchema(path, doc)
}

// loadOrInitParamsSpecs reads params_specs.yaml, returning a fresh, empty
// ParamsSpecs (rather than an error) if the file has never been written —
// the first run of any command in a new flow always starts from nothing
// stored.
func loadOrInitParamsSpecs(path string) (*state.ParamsSpecs, error) {
	specs, err := state.ReadParamsSpecs(path)
	if err != nil {
		var ne *state.NotExist
		if isNotExist(err, &ne) {
			return &state.ParamsSpecs{}, nil
		}
		return nil, err
	}
	return specs, nil
}

func isNotExist(err error, target **state.NotExist) bool {
	ne, ok := err.(*state.NotExist)
	if !ok {
		return false
	}
	*target = ne
	return true
}

// Persist writes c.ParamsSpecs back to disk, creating the flow directory
// as needed. Called after a command that introduced new provided specs.
func (c *Context) Persist() error {
	if err := os.MkdirAll(c.Layout.flowDir(), 0o755); err != nil {
		return err
	}
	return state.WriteParamsSpecs(c.Layout.paramsSpecsPath(), c.ParamsSpecs)
}
