// Package normalize implements section 4.3's Normalize and Typecheck passes:
// alias expansion, positional-to-named argument canonicalization, default
// filling, source canonicalization, constant folding, and common
// subexpression elimination keyed by ir.Hash.
package normalize

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/errs"
	"github.com/smilemakc/ta-engine/internal/ir"
)

// Warning is a non-fatal note surfaced alongside a normalized tree (e.g. an
// alias was resolved, a default was filled).
type Warning struct {
	Message string
}

// normalizer carries the CSE cache across one Normalize call; two
// structurally identical subtrees collapse to the same *pointer* so the
// planner and evaluator only ever see one copy.
type normalizer struct {
	cat     *catalog.Catalog
	cache   map[string]ir.Node
	warns   []Warning
}

// Normalize runs the six-step pass of section 4.3 over root and returns the
// canonical tree. It is idempotent: Normalize(Normalize(root)) == Normalize(root).
func Normalize(root ir.Node, cat *catalog.Catalog) (ir.Node, []Warning, error) {
	n := &normalizer{cat: cat, cache: map[string]ir.Node{}}
	out, err := n.visit(root, nil)
	if err != nil {
		return nil, nil, err
	}
	return out, n.warns, nil
}

// fieldHint carries the RequiredFields context down to a raw SourceRef
// child so source canonicalization (step 4) knows which field to default to
// positionally, rather than always defaulting to "close".
type fieldHint struct {
	field string
}

func (n *normalizer) visit(node ir.Node, hint *fieldHint) (ir.Node, error) {
	if node == nil {
		return nil, nil
	}
	switch v := node.(type) {
	case *ir.Literal:
		return n.intern(v)
	case *ir.SourceRef:
		return n.visitSourceRef(v, hint)
	case *ir.Call:
		return n.visitCall(v)
	case *ir.BinaryOp:
		return n.visitBinaryOp(v)
	case *ir.UnaryOp:
		return n.visitUnaryOp(v)
	case *ir.TimeShift:
		child, err := n.visit(v.Child, hint)
		if err != nil {
			return nil, err
		}
		return n.intern(&ir.TimeShift{Child: child, Delta: v.Delta, DeltaUnit: v.DeltaUnit})
	case *ir.Filter:
		return n.visitFilter(v)
	case *ir.Aggregate:
		coll, err := n.visit(v.Collection, nil)
		if err != nil {
			return nil, err
		}
		return n.intern(&ir.Aggregate{Collection: coll, Field: v.Field, Reducer: v.Reducer})
	case *ir.MemberAccess:
		child, err := n.visit(v.Child, nil)
		if err != nil {
			return nil, err
		}
		return n.intern(&ir.MemberAccess{Child: child, Name: v.Name})
	default:
		return nil, errs.Internal(fmt.Sprintf("normalize: unhandled node type %T", node))
	}
}

func (n *normalizer) visitSourceRef(v *ir.SourceRef, hint *fieldHint) (ir.Node, error) {
	out := *v
	if out.Source == "" {
		out.Source = "ohlcv"
	}
	if out.Field == "" {
		if hint != nil && hint.field != "" {
			out.Field = hint.field
		} else {
			out.Field = "close"
		}
	}
	if out.Timeframe == "" {
		out.Timeframe = "1h"
	}
	return n.intern(&out)
}

func (n *normalizer) visitFilter(v *ir.Filter) (ir.Node, error) {
	coll, err := n.visit(v.Collection, nil)
	if err != nil {
		return nil, err
	}
	if _, err := expr.Compile(v.Predicate); err != nil {
		return nil, errs.Internal(fmt.Sprintf("filter predicate %q: %v", v.Predicate, err))
	}
	return n.intern(&ir.Filter{Collection: coll, Predicate: v.Predicate})
}

func (n *normalizer) visitUnaryOp(v *ir.UnaryOp) (ir.Node, error) {
	child, err := n.visit(v.Child, nil)
	if err != nil {
		return nil, err
	}
	if lit, ok := child.(*ir.Literal); ok {
		folded, ok := foldUnary(v.Op, lit)
		if ok {
			return n.intern(folded)
		}
	}
	return n.intern(&ir.UnaryOp{Op: v.Op, Child: child})
}

func (n *normalizer) visitBinaryOp(v *ir.BinaryOp) (ir.Node, error) {
	lhs, err := n.visit(v.Lhs, nil)
	if err != nil {
		return nil, err
	}
	rhs, err := n.visit(v.Rhs, nil)
	if err != nil {
		return nil, err
	}
	if lLit, ok := lhs.(*ir.Literal); ok {
		if rLit, ok := rhs.(*ir.Literal); ok {
			if folded, ok := foldBinary(v.Op, lLit, rLit); ok {
				return n.intern(folded)
			}
		}
	}
	return n.intern(&ir.BinaryOp{Op: v.Op, Lhs: lhs, Rhs: rhs})
}

func (n *normalizer) visitCall(v *ir.Call) (ir.Node, error) {
	meta, ok := n.cat.Find(v.IndicatorID)
	if !ok {
		return nil, errs.UnknownIndicator(v.IndicatorID)
	}
	if meta.ID != v.IndicatorID {
		n.warns = append(n.warns, Warning{Message: fmt.Sprintf("indicator alias %q resolved to %q", v.IndicatorID, meta.ID)})
	}

	rawParams := canonicalizeParams(v.Params, meta)
	typed, err := n.cat.CoerceParams(meta, rawParams)
	if err != nil {
		return nil, err
	}

	inputs := make([]ir.Node, len(v.Inputs))
	for i, in := range v.Inputs {
		var hint *fieldHint
		if i < len(meta.Semantics.RequiredFields) {
			hint = &fieldHint{field: meta.Semantics.RequiredFields[i]}
		}
		norm, err := n.visit(in, hint)
		if err != nil {
			return nil, err
		}
		inputs[i] = norm
	}

	call := &ir.Call{IndicatorID: meta.ID, Inputs: inputs}
	for _, name := range sortedParamNames(typed) {
		call.Params = append(call.Params, ir.Param{Name: name, Value: typed[name]})
	}
	return n.intern(call)
}

// canonicalizeParams resolves positional params (empty Name, filled in
// declaration order) into named params using meta's declared Params order
// (section 4.3 step 2), then returns a plain map for CoerceParams.
func canonicalizeParams(params []ir.Param, meta *catalog.IndicatorMeta) map[string]any {
	out := map[string]any{}
	positional := 0
	for _, p := range params {
		name := p.Name
		if name == "" {
			if positional < len(meta.Params) {
				name = meta.Params[positional].Name
			}
			positional++
		}
		out[name] = p.Value
	}
	return out
}

func sortedParamNames(m catalog.TypedParams) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// intern applies common subexpression elimination: if an equal-hash node has
// already been produced during this Normalize call, the existing pointer is
// returned instead of the freshly built one.
func (n *normalizer) intern(node ir.Node) (ir.Node, error) {
	h := ir.Hash(node)
	if existing, ok := n.cache[h]; ok {
		return existing, nil
	}
	n.cache[h] = node
	return node, nil
}
