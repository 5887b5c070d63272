// Package preview implements section 4.6's thin orchestrator: preview,
// validate, and analyze, each composing normalize -> typecheck -> plan ->
// (optionally) evaluate without exposing any of those stages' internals to
// callers.
package preview

import (
	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/errs"
	"github.com/smilemakc/ta-engine/internal/evaluator"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/normalize"
	"github.com/smilemakc/ta-engine/internal/planner"
)

// RenderHints is the per-output display metadata emission carries.
type RenderHints struct {
	Role      string
	PaneHint  string // price_overlay | volume | pane
	StyleHint string
}

// Emission is one named output's resolved binding plus render hints.
type Emission struct {
	NodeID               string
	Indicator            string
	OutputName           string
	ResolvedInputBinding string
	RenderHints          RenderHints
}

// Result is preview()'s full response.
type Result struct {
	SeriesByOutput map[string]*evaluator.Column
	Emissions      []Emission
	Trim           int
	Requirements   []planner.DataRequirement
}

// compile runs normalize + typecheck + plan, the shared prefix of every
// entry point in this package.
func compile(root ir.Node, cat *catalog.Catalog, kernels *kernel.Registry, schema dataset.Schema) (ir.Node, *planner.Plan, error) {
	normalized, _, err := normalize.Normalize(root, cat)
	if err != nil {
		return nil, nil, err
	}
	if err := normalize.Typecheck(normalized, cat); err != nil {
		return nil, nil, err
	}
	plan, err := planner.Build(normalized, cat, kernels, schema)
	if err != nil {
		return nil, nil, err
	}
	return normalized, plan, nil
}

// Preview implements section 4.6's preview(): compile then evaluate in batch
// mode, returning every root output's series plus its render metadata.
func Preview(root ir.Node, ds *dataset.Dataset, cat *catalog.Catalog, kernels *kernel.Registry) (*Result, error) {
	normalized, plan, err := compile(root, cat, kernels, ds.DescribeSchema())
	if err != nil {
		return nil, err
	}
	batch, err := evaluator.Batch(plan, ds, kernels)
	if err != nil {
		return nil, err
	}

	series := make(map[string]*evaluator.Column, len(plan.RootOutputs))
	emissions := make([]Emission, 0, len(plan.RootOutputs))
	trim := 0
	for _, ro := range plan.RootOutputs {
		col, ok := batch.Output(ro.NodeID, ro.Name)
		if !ok {
			return nil, errs.Internal("preview: root output not produced: " + ro.Name)
		}
		series[ro.Name] = col
		node := findNode(plan, ro.NodeID)
		if node != nil && node.Lookback > trim {
			trim = node.Lookback
		}
		emissions = append(emissions, buildEmission(normalized, node, ro, cat))
	}

	requirements := make([]planner.DataRequirement, 0)
	for _, n := range plan.Nodes {
		if n.DataReq != nil {
			requirements = append(requirements, *n.DataReq)
		}
	}

	return &Result{SeriesByOutput: series, Emissions: emissions, Trim: trim, Requirements: requirements}, nil
}

func findNode(plan *planner.Plan, nodeID string) *planner.PlanNode {
	for _, n := range plan.Nodes {
		if n.NodeID == nodeID {
			return n
		}
	}
	return nil
}
