package normalize

import (
	"fmt"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/errs"
	"github.com/smilemakc/ta-engine/internal/ir"
)

// Typecheck runs the bottom-up inference pass of section 4.3 over an
// already-Normalize'd tree, caching each node's inferred ir.Type via
// SetType and returning errs.TypeMismatch on any violation. It must run
// after Normalize, since it relies on Call nodes already carrying a
// resolved, alias-free IndicatorID.
func Typecheck(root ir.Node, cat *catalog.Catalog) error {
	_, err := infer(root, cat)
	return err
}

func infer(node ir.Node, cat *catalog.Catalog) (ir.Type, error) {
	if node == nil {
		return ir.Type{}, nil
	}
	if t := node.Type(); t != nil {
		return *t, nil
	}

	var t ir.Type
	var err error
	switch v := node.(type) {
	case *ir.Literal:
		t = ir.Scalar(v.LiteralKind)
	case *ir.SourceRef:
		t, err = inferSourceRef(v)
	case *ir.Call:
		t, err = inferCall(v, cat)
	case *ir.BinaryOp:
		t, err = inferBinaryOp(v, cat)
	case *ir.UnaryOp:
		t, err = inferUnaryOp(v, cat)
	case *ir.TimeShift:
		t, err = infer(v.Child, cat)
	case *ir.Filter:
		t, err = inferFilter(v, cat)
	case *ir.Aggregate:
		t, err = inferAggregate(v, cat)
	case *ir.MemberAccess:
		t, err = inferMemberAccess(v, cat)
	default:
		return ir.Type{}, errs.Internal(fmt.Sprintf("typecheck: unhandled node type %T", node))
	}
	if err != nil {
		return ir.Type{}, err
	}
	node.SetType(t)
	return t, nil
}

func inferSourceRef(v *ir.SourceRef) (ir.Type, error) {
	switch v.Source {
	case "ohlcv", "":
		return ir.SeriesOf(ir.TypeSeriesNumber), nil
	case "trades":
		return ir.Collection(ir.TypeCollectionTrades), nil
	case "orderbook":
		return ir.Collection(ir.TypeCollectionBook), nil
	case "liquidation":
		return ir.Collection(ir.TypeCollectionLiquidation), nil
	default:
		return ir.Type{}, errs.UnknownSource(v.Source)
	}
}

func inferCall(v *ir.Call, cat *catalog.Catalog) (ir.Type, error) {
	meta, ok := cat.Find(v.IndicatorID)
	if !ok {
		return ir.Type{}, errs.UnknownIndicator(v.IndicatorID)
	}
	for _, in := range v.Inputs {
		childType, err := infer(in, cat)
		if err != nil {
			return ir.Type{}, err
		}
		if childType.IsSeries() || childType.Kind == "" {
			continue
		}
		switch childType.Kind {
		case ir.TypeCollectionTrades, ir.TypeCollectionBook, ir.TypeCollectionLiquidation:
			return ir.Type{}, errs.TypeMismatch(fmt.Sprintf("call(%s)", meta.ID), "series_number", string(childType.Kind))
		}
	}
	if meta.SingleOutput() {
		return ir.SeriesOf(ir.TypeSeriesNumber), nil
	}
	fields := map[string]ir.Type{}
	for _, o := range meta.Outputs {
		fields[o.Name] = ir.SeriesOf(ir.TypeSeriesNumber)
	}
	return ir.Structured(fields), nil
}

func inferBinaryOp(v *ir.BinaryOp, cat *catalog.Catalog) (ir.Type, error) {
	lhs, err := infer(v.Lhs, cat)
	if err != nil {
		return ir.Type{}, err
	}
	rhs, err := infer(v.Rhs, cat)
	if err != nil {
		return ir.Type{}, err
	}
	switch {
	case v.Op.IsArithmetic():
		if !lhs.IsNumericSeriesOrScalar() {
			return ir.Type{}, errs.TypeMismatch("binaryop.lhs", "numeric", lhs.String())
		}
		if !rhs.IsNumericSeriesOrScalar() {
			return ir.Type{}, errs.TypeMismatch("binaryop.rhs", "numeric", rhs.String())
		}
		if lhs.IsSeries() || rhs.IsSeries() {
			return ir.SeriesOf(ir.TypeSeriesNumber), nil
		}
		return ir.Scalar(ir.TypeScalarNumber), nil
	case v.Op.IsComparison():
		if !lhs.IsNumericSeriesOrScalar() || !rhs.IsNumericSeriesOrScalar() {
			return ir.Type{}, errs.TypeMismatch("binaryop", "numeric", lhs.String()+","+rhs.String())
		}
		if lhs.IsSeries() || rhs.IsSeries() {
			return ir.SeriesOf(ir.TypeSeriesBool), nil
		}
		return ir.Scalar(ir.TypeScalarBool), nil
	case v.Op.IsLogical():
		if !lhs.IsBoolSeriesOrScalar() || !rhs.IsBoolSeriesOrScalar() {
			return ir.Type{}, errs.TypeMismatch("binaryop", "bool", lhs.String()+","+rhs.String())
		}
		if lhs.IsSeries() || rhs.IsSeries() {
			return ir.SeriesOf(ir.TypeSeriesBool), nil
		}
		return ir.Scalar(ir.TypeScalarBool), nil
	default:
		return ir.Type{}, errs.Internal("typecheck: unknown binary op " + string(v.Op))
	}
}

func inferUnaryOp(v *ir.UnaryOp, cat *catalog.Catalog) (ir.Type, error) {
	child, err := infer(v.Child, cat)
	if err != nil {
		return ir.Type{}, err
	}
	switch v.Op {
	case ir.OpNeg:
		if !child.IsNumericSeriesOrScalar() {
			return ir.Type{}, errs.TypeMismatch("unaryop(neg)", "numeric", child.String())
		}
		return child, nil
	case ir.OpNot:
		if !child.IsBoolSeriesOrScalar() {
			return ir.Type{}, errs.TypeMismatch("unaryop(not)", "bool", child.String())
		}
		return child, nil
	default:
		return ir.Type{}, errs.Internal("typecheck: unknown unary op " + string(v.Op))
	}
}

func inferFilter(v *ir.Filter, cat *catalog.Catalog) (ir.Type, error) {
	collType, err := infer(v.Collection, cat)
	if err != nil {
		return ir.Type{}, err
	}
	switch collType.Kind {
	case ir.TypeCollectionTrades, ir.TypeCollectionBook, ir.TypeCollectionLiquidation:
		return collType, nil
	default:
		return ir.Type{}, errs.TypeMismatch("filter.collection", "collection", collType.String())
	}
}

func inferAggregate(v *ir.Aggregate, cat *catalog.Catalog) (ir.Type, error) {
	collType, err := infer(v.Collection, cat)
	if err != nil {
		return ir.Type{}, err
	}
	switch collType.Kind {
	case ir.TypeCollectionTrades, ir.TypeCollectionBook, ir.TypeCollectionLiquidation:
		return ir.SeriesOf(ir.TypeSeriesNumber), nil
	default:
		return ir.Type{}, errs.TypeMismatch("aggregate.collection", "collection", collType.String())
	}
}

func inferMemberAccess(v *ir.MemberAccess, cat *catalog.Catalog) (ir.Type, error) {
	childType, err := infer(v.Child, cat)
	if err != nil {
		return ir.Type{}, err
	}
	if childType.Kind != ir.TypeStructured {
		return ir.Type{}, errs.TypeMismatch("memberaccess.child", "structured", childType.String())
	}
	field, ok := childType.Fields[v.Name]
	if !ok {
		return ir.Type{}, errs.UnknownField("structured", v.Name)
	}
	return field, nil
}
