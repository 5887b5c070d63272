package catalog

import "github.com/smilemakc/ta-engine/internal/ir"

// The helpers below build the small ir.Node trees used by ExpandFunc
// implementations in builtins_composite.go. They exist purely to keep expansion code
// readable; they carry no behavior beyond struct-literal construction.

func call(id string, params map[string]any, inputs ...ir.Node) *ir.Call {
	c := &ir.Call{IndicatorID: id, Inputs: inputs}
	for _, name := range sortedKeys(params) {
		c.Params = append(c.Params, ir.Param{Name: name, Value: params[name]})
	}
	return c
}

func sortedKeys(m map[string]any) []string {
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

func lit(v float64) *ir.Literal { return ir.NewLiteralNumber(v) }

func bin(op ir.BinOp, lhs, rhs ir.Node) *ir.BinaryOp { return &ir.BinaryOp{Op: op, Lhs: lhs, Rhs: rhs} }

func add(l, r ir.Node) *ir.BinaryOp { return bin(ir.OpAdd, l, r) }
func sub(l, r ir.Node) *ir.BinaryOp { return bin(ir.OpSub, l, r) }
func mul(l, r ir.Node) *ir.BinaryOp { return bin(ir.OpMul, l, r) }
func div(l, r ir.Node) *ir.BinaryOp { return bin(ir.OpDiv, l, r) }

func shiftBars(child ir.Node, bars int64) *ir.TimeShift {
	return &ir.TimeShift{Child: child, Delta: bars, DeltaUnit: "bars"}
}

func intSpec(name string, def, min int) ParamSpec {
	minF := float64(min)
	return ParamSpec{Name: name, Kind: ParamInt, Default: def, Min: &minF}
}

func numSpec(name string, def float64) ParamSpec {
	return ParamSpec{Name: name, Kind: ParamNumber, Default: def}
}

func paramInt(params map[string]any, name string, def int) int {
	v, ok := params[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

func paramFloat(params map[string]any, name string, def float64) float64 {
	v, ok := params[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}
