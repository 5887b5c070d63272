package evaluator

import (
	"fmt"
	"math"
	"sort"

	"github.com/expr-lang/expr"

	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/errs"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/planner"
	"github.com/smilemakc/ta-engine/internal/types"
)

// BatchResult is the output of Batch: every plan node's outputs, keyed by
// node id and then by output name (almost always just "value").
type BatchResult struct {
	Columns map[string]map[string]*Column
}

// Output returns the named output of node nodeID, defaulting to "value".
func (r *BatchResult) Output(nodeID, name string) (*Column, bool) {
	m, ok := r.Columns[nodeID]
	if !ok {
		return nil, false
	}
	if name == "" {
		name = "value"
	}
	c, ok := m[name]
	return c, ok
}

// RootColumns returns the Column for every entry of plan.RootOutputs, in
// order.
func (r *BatchResult) RootColumns(plan *planner.Plan) ([]*Column, error) {
	out := make([]*Column, len(plan.RootOutputs))
	for i, ro := range plan.RootOutputs {
		c, ok := r.Output(ro.NodeID, ro.Name)
		if !ok {
			return nil, errs.Internal(fmt.Sprintf("root output %q not produced", ro.Name))
		}
		out[i] = c
	}
	return out, nil
}

type batchCtx struct {
	ds      *dataset.Dataset
	kernels *kernel.Registry

	columns map[string]map[string]*Column
	colls   map[string][]dataset.Collection
}

// Batch executes plan against ds in vectorized whole-history mode (section
// 4.5's batch path): every node is evaluated exactly once, in the plan's
// topological order, over its full aligned timeline.
func Batch(plan *planner.Plan, ds *dataset.Dataset, kernels *kernel.Registry) (*BatchResult, error) {
	bc := &batchCtx{
		ds:      ds,
		kernels: kernels,
		columns: map[string]map[string]*Column{},
		colls:   map[string][]dataset.Collection{},
	}
	for _, n := range plan.Nodes {
		if err := bc.eval(n); err != nil {
			return nil, err
		}
	}
	return &BatchResult{Columns: bc.columns}, nil
}

func (bc *batchCtx) parentColumn(n *planner.PlanNode, i int) *Column {
	pid := n.Parents[i]
	out := "value"
	if i < len(n.ParentOutputs) && n.ParentOutputs[i] != "" {
		out = n.ParentOutputs[i]
	}
	return bc.columns[pid][out]
}

func (bc *batchCtx) eval(n *planner.PlanNode) error {
	switch n.Kind {
	case ir.KindLiteral:
		return bc.evalLiteral(n)
	case ir.KindSourceRef:
		return bc.evalSourceRef(n)
	case ir.KindCall:
		return bc.evalCall(n)
	case ir.KindBinaryOp:
		return bc.evalBinaryOp(n)
	case ir.KindUnaryOp:
		return bc.evalUnaryOp(n)
	case ir.KindTimeShift:
		return bc.evalTimeShift(n)
	case ir.KindFilter:
		return bc.evalFilter(n)
	case ir.KindAggregate:
		return bc.evalAggregate(n)
	default:
		return errs.Internal(fmt.Sprintf("evaluator: unhandled node kind %q", n.Kind))
	}
}

func (bc *batchCtx) set(nodeID, output string, c *Column) {
	m, ok := bc.columns[nodeID]
	if !ok {
		m = map[string]*Column{}
		bc.columns[nodeID] = m
	}
	m[output] = c
}

func (bc *batchCtx) evalLiteral(n *planner.PlanNode) error {
	lit := n.Literal
	if lit == nil {
		return errs.Internal("literal node missing literal value")
	}
	v := kernel.Value{Num: lit.Num, Bool: lit.Bool, IsBool: lit.IsBool, Available: true}
	bc.set(n.NodeID, "value", scalarColumn(v))
	return nil
}

func (bc *batchCtx) evalSourceRef(n *planner.PlanNode) error {
	req := n.DataReq
	if req == nil {
		return errs.Internal("source_ref node missing data_requirement")
	}
	if req.Field == "" {
		// Collection leaf (trades/orderbook/liquidation).
		recs, _ := bc.ds.Records(req.Symbol, req.Timeframe, types.Source(req.Source))
		bc.colls[n.NodeID] = recs
		return nil
	}
	if s, ok := bc.ds.Field(req.Symbol, req.Timeframe, types.Source(req.Source), req.Field); ok {
		bc.set(n.NodeID, "value", newNumColumn(s.Timestamps(), s.Values(), s.Mask()))
		return nil
	}
	if s, ok := bc.ds.BoolField(req.Symbol, req.Timeframe, types.Source(req.Source), req.Field); ok {
		bc.set(n.NodeID, "value", newBoolColumn(s.Timestamps(), s.Values(), s.Mask()))
		return nil
	}
	return errs.MissingData(req.Symbol, req.Timeframe, req.Source, req.Field, 0, req.MinBars)
}

func (bc *batchCtx) evalCall(n *planner.PlanNode) error {
	parents := make([]*Column, len(n.Parents))
	for i := range n.Parents {
		parents[i] = bc.parentColumn(n, i)
	}
	ts := timeline(parents)

	outputs := n.OutputOrder
	if len(outputs) == 0 {
		outputs = []string{"value"}
	}
	cols := make(map[string]*colBuilder, len(outputs))
	for _, name := range outputs {
		cols[name] = newColBuilder()
	}

	rows := len(ts)
	if rows == 0 && len(parents) > 0 {
		// every input scalar: nothing to step over a timeline; leave outputs empty.
	}
	st, err := bc.kernels.New(n.Kernel.ID, n.Kernel.Params)
	if err != nil {
		return errs.Internal(fmt.Sprintf("kernel %q: %v", n.Kernel.ID, err))
	}
	for row := 0; row < rows; row++ {
		inputs := make([]kernel.Value, len(parents))
		for i, c := range parents {
			inputs[i] = valueAt(c, ts, row)
		}
		emit := st.Step(kernel.Update{Timestamp: ts[row], Inputs: inputs})
		primary := outputs[0]
		cols[primary].append(ts[row], emit.Value, emit.Available)
		for _, name := range outputs[1:] {
			if v, ok := emit.Extra[name]; ok {
				cols[name].append(ts[row], v, v.Available)
			} else {
				cols[name].append(ts[row], kernel.Unavailable(false), false)
			}
		}
	}
	for _, name := range outputs {
		bc.set(n.NodeID, name, cols[name].build())
	}
	return nil
}

// colBuilder accumulates a Column row by row, discovering whether it is
// numeric or boolean from its first emission, available or not (kernels never mix
// value kinds across ticks of the same output).
type colBuilder struct {
	ts     []int64
	nums   []float64
	bools  []bool
	mask   []bool
	isBool bool
	known  bool
}

func newColBuilder() *colBuilder { return &colBuilder{} }

func (b *colBuilder) append(ts int64, v kernel.Value, available bool) {
	if !b.known {
		b.isBool = v.IsBool
		b.known = true
	}
	b.ts = append(b.ts, ts)
	b.mask = append(b.mask, available)
	if b.isBool {
		b.bools = append(b.bools, v.Bool)
	} else {
		b.nums = append(b.nums, v.Num)
	}
}

func (b *colBuilder) build() *Column {
	if b.isBool {
		return newBoolColumn(b.ts, b.bools, b.mask)
	}
	return newNumColumn(b.ts, b.nums, b.mask)
}

func (bc *batchCtx) evalBinaryOp(n *planner.PlanNode) error {
	lhs := bc.parentColumn(n, 0)
	rhs := bc.parentColumn(n, 1)
	ts := timeline([]*Column{lhs, rhs})
	out := newColBuilder()
	isBoolResult := n.BinOp.IsComparison() || n.BinOp.IsLogical()
	out.isBool = isBoolResult
	out.known = true

	rows := len(ts)
	for row := 0; row < rows; row++ {
		l := valueAt(lhs, ts, row)
		r := valueAt(rhs, ts, row)
		v, available := applyBinary(n.BinOp, l, r)
		out.append(ts[row], v, available)
	}
	bc.set(n.NodeID, "value", out.build())
	return nil
}

func applyBinary(op ir.BinOp, l, r kernel.Value) (kernel.Value, bool) {
	if !l.Available || !r.Available {
		return kernel.Unavailable(op.IsComparison() || op.IsLogical()), false
	}
	switch {
	case op.IsLogical():
		return kernel.BoolValue(logicalApply(op, l.Bool, r.Bool)), true
	case op.IsComparison():
		if math.IsNaN(l.Num) || math.IsInf(l.Num, 0) || math.IsNaN(r.Num) || math.IsInf(r.Num, 0) {
			return kernel.Unavailable(true), false
		}
		return kernel.BoolValue(compareApply(op, l.Num, r.Num)), true
	default:
		if op == ir.OpDiv || op == ir.OpMod {
			if r.Num == 0 {
				return kernel.Unavailable(false), false
			}
		}
		v := arithApply(op, l.Num, r.Num)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return kernel.Unavailable(false), false
		}
		return kernel.NumValue(v), true
	}
}

func logicalApply(op ir.BinOp, l, r bool) bool {
	if op == ir.OpAnd {
		return l && r
	}
	return l || r
}

func compareApply(op ir.BinOp, l, r float64) bool {
	switch op {
	case ir.OpEq:
		return l == r
	case ir.OpNeq:
		return l != r
	case ir.OpLt:
		return l < r
	case ir.OpLte:
		return l <= r
	case ir.OpGt:
		return l > r
	case ir.OpGte:
		return l >= r
	default:
		return false
	}
}

func arithApply(op ir.BinOp, l, r float64) float64 {
	switch op {
	case ir.OpAdd:
		return l + r
	case ir.OpSub:
		return l - r
	case ir.OpMul:
		return l * r
	case ir.OpDiv:
		return l / r
	case ir.OpMod:
		return math.Mod(l, r)
	default:
		return math.NaN()
	}
}

func (bc *batchCtx) evalUnaryOp(n *planner.PlanNode) error {
	child := bc.parentColumn(n, 0)
	ts := timeline([]*Column{child})
	out := newColBuilder()
	isBool := n.UnOp == ir.OpNot
	out.isBool = isBool
	out.known = true
	for row := 0; row < len(ts); row++ {
		v := valueAt(child, ts, row)
		if !v.Available {
			out.append(ts[row], kernel.Unavailable(isBool), false)
			continue
		}
		if n.UnOp == ir.OpNot {
			out.append(ts[row], kernel.BoolValue(!v.Bool), true)
		} else {
			out.append(ts[row], kernel.NumValue(-v.Num), true)
		}
	}
	bc.set(n.NodeID, "value", out.build())
	return nil
}

func (bc *batchCtx) evalTimeShift(n *planner.PlanNode) error {
	child := bc.parentColumn(n, 0)
	if child.Scalar {
		bc.set(n.NodeID, "value", child)
		return nil
	}
	ts := child.Timestamps
	out := newColBuilder()
	out.isBool = child.IsBool
	out.known = true

	if n.ShiftUnit == "bars" {
		delta := int(n.ShiftDelta)
		for i := range ts {
			srcIdx := i - delta
			if srcIdx < 0 || srcIdx >= len(ts) {
				out.append(ts[i], kernel.Unavailable(child.IsBool), false)
				continue
			}
			out.append(ts[i], child.At(srcIdx), child.Mask[srcIdx])
		}
	} else {
		for i := range ts {
			target := ts[i] - n.ShiftDelta
			idx := indexOf(ts, target)
			if idx < 0 {
				out.append(ts[i], kernel.Unavailable(child.IsBool), false)
				continue
			}
			out.append(ts[i], child.At(idx), child.Mask[idx])
		}
	}
	bc.set(n.NodeID, "value", out.build())
	return nil
}

func (bc *batchCtx) childRecords(n *planner.PlanNode) []dataset.Collection {
	pid := n.Parents[0]
	return bc.colls[pid]
}

func (bc *batchCtx) evalFilter(n *planner.PlanNode) error {
	program, err := expr.Compile(n.FilterPredicate)
	if err != nil {
		return errs.InvalidParameter("predicate", err.Error())
	}
	recs := bc.childRecords(n)
	out := make([]dataset.Collection, 0, len(recs))
	for _, rec := range recs {
		env := envOf(rec)
		res, err := expr.Run(program, env)
		if err != nil {
			return errs.Internal(fmt.Sprintf("filter predicate: %v", err))
		}
		keep, ok := res.(bool)
		if ok && keep {
			out = append(out, rec)
		}
	}
	bc.colls[n.NodeID] = out
	return nil
}

func envOf(rec dataset.Collection) map[string]any {
	env := make(map[string]any, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		env[k] = v
	}
	env["timestamp"] = rec.Timestamp
	return env
}

func (bc *batchCtx) evalAggregate(n *planner.PlanNode) error {
	recs := bc.childRecords(n)
	tf := n.Alignment.Timeframe

	type bucket struct {
		sum, min, max float64
		count         int
	}
	buckets := map[int64]*bucket{}
	var order []int64
	for _, rec := range recs {
		v, ok := rec.Fields[n.AggField]
		if !ok {
			continue
		}
		bts := bucketStart(rec.Timestamp, tf)
		b, exists := buckets[bts]
		if !exists {
			b = &bucket{min: math.Inf(1), max: math.Inf(-1)}
			buckets[bts] = b
			order = append(order, bts)
		}
		b.sum += v
		b.count++
		if v < b.min {
			b.min = v
		}
		if v > b.max {
			b.max = v
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := newColBuilder()
	for _, bts := range order {
		b := buckets[bts]
		switch n.AggReducer {
		case ir.ReduceCount:
			out.append(bts, kernel.NumValue(float64(b.count)), true)
		case ir.ReduceSum:
			out.append(bts, kernel.NumValue(b.sum), b.count > 0)
		case ir.ReduceMean:
			if b.count > 0 {
				out.append(bts, kernel.NumValue(b.sum/float64(b.count)), true)
			} else {
				out.append(bts, kernel.Unavailable(false), false)
			}
		case ir.ReduceMin:
			out.append(bts, kernel.NumValue(b.min), b.count > 0)
		case ir.ReduceMax:
			out.append(bts, kernel.NumValue(b.max), b.count > 0)
		default:
			out.append(bts, kernel.Unavailable(false), false)
		}
	}
	bc.set(n.NodeID, "value", out.build())
	return nil
}

