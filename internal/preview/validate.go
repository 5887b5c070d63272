package preview

import (
	"fmt"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/errs"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/planner"
)

// ValidateResult is validate()'s response: never itself an error, since
// validate's whole purpose is to report compile failures as data.
type ValidateResult struct {
	Valid      bool
	Errors     []ErrorInfo
	Warnings   []string
	Indicators []string
}

// ErrorInfo mirrors the wire error envelope's {kind, message, details} shape.
type ErrorInfo struct {
	Kind    string
	Message string
	Details map[string]any
}

func errorInfo(err error) ErrorInfo {
	if ee, ok := err.(errs.Error); ok {
		return ErrorInfo{Kind: string(ee.Kind()), Message: ee.Error(), Details: ee.Details()}
	}
	return ErrorInfo{Kind: string(errs.KindInternalError), Message: err.Error()}
}

// Validate implements section 4.6's validate(): normalize + typecheck +
// plan, without ever touching a Dataset's values, only its schema.
func Validate(root ir.Node, schema dataset.Schema, cat *catalog.Catalog, kernels *kernel.Registry) *ValidateResult {
	normalized, plan, err := compile(root, cat, kernels, schema)
	if err != nil {
		return &ValidateResult{Valid: false, Errors: []ErrorInfo{errorInfo(err)}}
	}
	_ = normalized

	warnings := checkSchemaCoverage(plan, schema)
	return &ValidateResult{
		Valid:      true,
		Warnings:   warnings,
		Indicators: plan.CapabilityManifest.Indicators,
	}
}

// checkSchemaCoverage warns (but does not fail validate) about any leaf the
// plan reads that schema does not currently describe -- a Dataset can still
// grow to cover it before evaluate runs, so it is advisory, not fatal.
func checkSchemaCoverage(plan *planner.Plan, schema dataset.Schema) []string {
	var warnings []string
	for _, n := range plan.Nodes {
		req := n.DataReq
		if req == nil {
			continue
		}
		id := fmt.Sprintf("%s/%s/%s", req.Symbol, req.Timeframe, req.Source)
		if req.Field == "" {
			if !schema.Collections[id] {
				warnings = append(warnings, fmt.Sprintf("dataset schema has no collection at %s", id))
			}
			continue
		}
		fields, ok := schema.Fields[id]
		if !ok || !containsField(fields, req.Field) {
			warnings = append(warnings, fmt.Sprintf("dataset schema has no field %q at %s", req.Field, id))
		}
	}
	return warnings
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
