package normalize

import "github.com/smilemakc/ta-engine/internal/ir"

// foldBinary evaluates a BinaryOp over two Literal operands at normalize
// time (section 4.3 step 5), so the planner/evaluator never has to special
// case constant-only subtrees.
func foldBinary(op ir.BinOp, lhs, rhs *ir.Literal) (*ir.Literal, bool) {
	if op.IsArithmetic() {
		l, lok := asNumber(lhs.Value)
		r, rok := asNumber(rhs.Value)
		if !lok || !rok {
			return nil, false
		}
		switch op {
		case ir.OpAdd:
			return ir.NewLiteralNumber(l + r), true
		case ir.OpSub:
			return ir.NewLiteralNumber(l - r), true
		case ir.OpMul:
			return ir.NewLiteralNumber(l * r), true
		case ir.OpDiv:
			if r == 0 {
				return nil, false
			}
			return ir.NewLiteralNumber(l / r), true
		case ir.OpMod:
			if r == 0 {
				return nil, false
			}
			return ir.NewLiteralNumber(float64(int64(l) % int64(r))), true
		}
	}
	if op.IsComparison() {
		l, lok := asNumber(lhs.Value)
		r, rok := asNumber(rhs.Value)
		if !lok || !rok {
			return nil, false
		}
		var res bool
		switch op {
		case ir.OpEq:
			res = l == r
		case ir.OpNeq:
			res = l != r
		case ir.OpLt:
			res = l < r
		case ir.OpLte:
			res = l <= r
		case ir.OpGt:
			res = l > r
		case ir.OpGte:
			res = l >= r
		default:
			return nil, false
		}
		return ir.NewLiteralBool(res), true
	}
	if op.IsLogical() {
		l, lok := lhs.Value.(bool)
		r, rok := rhs.Value.(bool)
		if !lok || !rok {
			return nil, false
		}
		if op == ir.OpAnd {
			return ir.NewLiteralBool(l && r), true
		}
		return ir.NewLiteralBool(l || r), true
	}
	return nil, false
}

// foldUnary evaluates a UnaryOp over a Literal operand at normalize time.
func foldUnary(op ir.UnOp, child *ir.Literal) (*ir.Literal, bool) {
	switch op {
	case ir.OpNeg:
		v, ok := asNumber(child.Value)
		if !ok {
			return nil, false
		}
		return ir.NewLiteralNumber(-v), true
	case ir.OpNot:
		v, ok := child.Value.(bool)
		if !ok {
			return nil, false
		}
		return ir.NewLiteralBool(!v), true
	default:
		return nil, false
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
