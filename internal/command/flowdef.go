package command

import (
	"github.com/peaceflow/peace/internal/cmdctx"
	"github.com/peaceflow/peace/internal/item"
	"github.com/peaceflow/peace/internal/params"
	"github.com/peaceflow/peace/items/download"
	"github.com/peaceflow/peace/items/ociartifact"
	"github.com/peaceflow/peace/items/render"
	"github.com/peaceflow/peace/items/shcmd"
	"github.com/peaceflow/peace/items/tarx"
	"github.com/peaceflow/peace/items/vecopy"
)

// buildItems wires the six reference items into one fixed demonstration
// flow, each item's Params read from the flow's params_specs.yaml
// (params.Stored), the same way score-compose's `init` scaffolds a fixed
// set of default provisioners rather than a user-pluggable registry.
// A real embedding of this engine replaces this function with its own
// item graph; the CLI ships one so `peace discover/diff/apply` has
// something to run against out of the box.
func buildItems(resolver *params.Resolver) []cmdctx.ItemDef {
	return []cmdctx.ItemDef{
		{
			Rt: vecopy.New("source").Rt(resolver, params.Stored[vecopy.Params]()),
		},
		{
			Rt:        shcmd.New("prepare").Rt(resolver, params.Stored[shcmd.Params]()),
			DependsOn: []item.Id{"source"},
		},
		{
			Rt:        tarx.New("archive").Rt(resolver, params.Stored[tarx.Params]()),
			DependsOn: []item.Id{"prepare"},
		},
		{
			Rt:        download.New("fetch").Rt(resolver, params.Stored[download.Params]()),
			DependsOn: []item.Id{"archive"},
		},
		{
			Rt:        ociartifact.New("artifact").Rt(resolver, params.Stored[ociartifact.Params]()),
			DependsOn: []item.Id{"fetch"},
		},
		{
			Rt:        render.New("render").Rt(resolver, params.Stored[render.Params]()),
			DependsOn: []item.Id{"artifact"},
		},
	}
}
