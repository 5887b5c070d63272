package preview

import (
	"fmt"
	"strings"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/planner"
)

// buildEmission assembles one root output's emission record, looking the
// indicator metadata up from the normalized IR root (or the Call a
// MemberAccess root selects from) rather than the Plan, since PlanNode only
// remembers the kernel kind it bound to, not the user-facing indicator id.
func buildEmission(root ir.Node, node *planner.PlanNode, ro planner.RootOutput, cat *catalog.Catalog) Emission {
	call, meta := resolveIndicator(root, ro.Name, cat)
	indicatorID := ""
	if call != nil {
		indicatorID = call.IndicatorID
	}

	var kernelID string
	if node != nil && node.Kernel != nil {
		kernelID = node.Kernel.ID
	}

	fields := collectFields(root)
	dominant := dominantField(fields)

	return Emission{
		NodeID:               ro.NodeID,
		Indicator:             indicatorID,
		OutputName:            ro.Name,
		ResolvedInputBinding:  bindingDescription(node, kernelID),
		RenderHints:           renderHints(meta, dominant),
	}
}

// resolveIndicator walks the normalized root looking for the *ir.Call that
// declares output name -- the root itself if it is a bare Call, or the
// Child of a MemberAccess matching name.
func resolveIndicator(root ir.Node, name string, cat *catalog.Catalog) (*ir.Call, *catalog.IndicatorMeta) {
	var call *ir.Call
	switch v := root.(type) {
	case *ir.Call:
		call = v
	case *ir.MemberAccess:
		if c, ok := v.Child.(*ir.Call); ok && v.Name == name {
			call = c
		}
	}
	if call == nil {
		return nil, nil
	}
	meta, ok := cat.Find(call.IndicatorID)
	if !ok {
		return call, nil
	}
	return call, meta
}

func bindingDescription(node *planner.PlanNode, kernelID string) string {
	if node == nil {
		return ""
	}
	if kernelID != "" {
		return fmt.Sprintf("kernel:%s(%s)", kernelID, strings.Join(node.Parents, ","))
	}
	return strings.Join(node.Parents, ",")
}

// collectFields walks the whole IR tree collecting every distinct
// SourceRef.Field it touches, used to decide whether an expression's inputs
// are dominated by one field ("close", "volume", ...) or mixed.
func collectFields(n ir.Node) map[string]bool {
	out := map[string]bool{}
	var walk func(ir.Node)
	walk = func(n ir.Node) {
		switch v := n.(type) {
		case *ir.SourceRef:
			if v.Field != "" {
				out[v.Field] = true
			}
		case *ir.Call:
			for _, in := range v.Inputs {
				walk(in)
			}
		case *ir.BinaryOp:
			walk(v.Lhs)
			walk(v.Rhs)
		case *ir.UnaryOp:
			walk(v.Child)
		case *ir.TimeShift:
			walk(v.Child)
		case *ir.Filter:
			walk(v.Collection)
		case *ir.Aggregate:
			walk(v.Collection)
		case *ir.MemberAccess:
			walk(v.Child)
		}
	}
	walk(n)
	return out
}

func dominantField(fields map[string]bool) string {
	if len(fields) != 1 {
		return "" // empty or mixed
	}
	for f := range fields {
		return f
	}
	return ""
}

// renderHints derives pane_hint per section 4.6: the volume category renders
// in the volume pane; oscillator-like categories (anything not
// overlay/volume) always render in their own pane, whatever their input
// field; an overlay indicator riding a single volume field goes to the
// volume pane; an overlay indicator riding a single
// non-volume field overlays the price pane; mixed or empty inputs fall back
// to their own pane. With no indicator metadata the dominant-field rule
// alone decides.
func renderHints(meta *catalog.IndicatorMeta, dominant string) RenderHints {
	hints := RenderHints{Role: "line", StyleHint: "solid"}
	if meta != nil {
		if len(meta.Outputs) > 0 {
			hints.Role = meta.Outputs[0].Role
			if hints.Role == "" {
				hints.Role = string(meta.Outputs[0].Kind)
			}
		}
		switch meta.Category {
		case "volume":
			hints.PaneHint = "volume"
			return hints
		case "overlay":
			// fall through to dominant-field check below
		default:
			hints.PaneHint = "pane"
			return hints
		}
	}
	switch dominant {
	case "volume":
		hints.PaneHint = "volume"
	case "":
		hints.PaneHint = "pane"
	default:
		hints.PaneHint = "price_overlay"
	}
	return hints
}
