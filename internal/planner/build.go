package planner

import (
	"fmt"
	"sort"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/errs"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
)

// builder carries the state threaded through one Build call: the node
// cache (identity -> already-built node_id), the composite output bindings
// MemberAccess resolves against, and the accumulated node list in
// topological order.
type builder struct {
	cat     *catalog.Catalog
	kernels *kernel.Registry
	schema  dataset.Schema

	nodeID  map[ir.Node]string // resolved id for an ir.Node pointer (transparent for composites)
	nodeOut map[ir.Node]string // resolved output name for an ir.Node pointer, paired with nodeID
	visitng map[ir.Node]bool
	byID    map[string]*PlanNode
	order   []*PlanNode

	// compositeBindings[callNodeID][outputName] = underlying node_id, for
	// both Expand-based sub-DAG composites and direct multi-output kernels
	// (adx, vortex), so MemberAccess never needs a synthetic passthrough node.
	compositeBindings map[string]map[string]string

	symbols map[string]map[string]bool // node_id -> distinct non-empty symbols in its subtree

	operators  map[string]bool
	indicators map[string]bool
}

// Build implements section 4.4: it walks typed, normalized IR post-order,
// assigns stable hash-derived node_ids, resolves kernel bindings and data
// requirements, computes lookback/alignment, and emits a topologically
// sorted Plan. schema describes the dataset the plan will run against; Build
// stores it but does not consult it, and never reads series values.
func Build(root ir.Node, cat *catalog.Catalog, kernels *kernel.Registry, schema dataset.Schema) (*Plan, error) {
	b := &builder{
		cat:               cat,
		kernels:           kernels,
		schema:            schema,
		nodeID:            map[ir.Node]string{},
		nodeOut:           map[ir.Node]string{},
		visitng:           map[ir.Node]bool{},
		byID:              map[string]*PlanNode{},
		compositeBindings: map[string]map[string]string{},
		symbols:           map[string]map[string]bool{},
		operators:         map[string]bool{},
		indicators:        map[string]bool{},
	}

	rootID, rootOutput, err := b.build(root)
	if err != nil {
		return nil, err
	}

	demand := propagateDemand(b.order)
	for _, n := range b.order {
		if n.DataReq != nil {
			n.DataReq.MinBars = demand[n.NodeID]
		}
	}

	manifest := b.manifest()
	return &Plan{
		SchemaVersion:      1,
		Nodes:              b.order,
		RootID:             rootID,
		RootOutputs:        b.rootOutputs(root, rootID, rootOutput),
		CapabilityManifest: manifest,
	}, nil
}

// rootOutputs derives the exposed top-level output set: a single entry for
// an ordinary expression or a MemberAccess-selected name, or one entry per
// declared output when root is itself a bare multi-output Call (no member
// access), which previews every line the indicator declares at once.
func (b *builder) rootOutputs(root ir.Node, rootID, rootOutput string) []RootOutput {
	if call, ok := root.(*ir.Call); ok {
		if bindings, ok2 := b.compositeBindings[ir.Hash(call)]; ok2 {
			if meta, ok3 := b.cat.Find(call.IndicatorID); ok3 && !meta.SingleOutput() {
				out := make([]RootOutput, 0, len(meta.Outputs))
				for _, o := range meta.Outputs {
					if nodeID, ok4 := bindings[o.Name]; ok4 {
						out = append(out, RootOutput{Name: o.Name, NodeID: nodeID})
					}
				}
				if len(out) > 0 {
					return out
				}
			}
		}
	}
	return []RootOutput{{Name: rootOutput, NodeID: rootID}}
}

// build resolves node to (node_id, output_name): output_name is "value" for
// every ordinary node and the MemberAccess-selected name for a reference
// into a dedicated multi-output Call (adx, vortex) whose distinct outputs
// all collapse onto the same node_id.
func (b *builder) build(node ir.Node) (string, string, error) {
	if node == nil {
		return "", "", nil
	}
	if id, ok := b.nodeID[node]; ok {
		return id, b.nodeOut[node], nil
	}
	if b.visitng[node] {
		return "", "", errs.CycleErr([]string{ir.Hash(node)})
	}
	b.visitng[node] = true
	defer delete(b.visitng, node)

	var id, output string
	var err error
	switch v := node.(type) {
	case *ir.Literal:
		id, err = b.buildLiteral(v)
		output = "value"
	case *ir.SourceRef:
		id, err = b.buildSourceRef(v)
		output = "value"
	case *ir.Call:
		id, err = b.buildCall(v)
		output = "value"
	case *ir.BinaryOp:
		id, err = b.buildBinaryOp(v)
		output = "value"
	case *ir.UnaryOp:
		id, err = b.buildUnaryOp(v)
		output = "value"
	case *ir.TimeShift:
		id, err = b.buildTimeShift(v)
		output = "value"
	case *ir.Filter:
		id, err = b.buildFilter(v)
		output = "value"
	case *ir.Aggregate:
		id, err = b.buildAggregate(v)
		output = "value"
	case *ir.MemberAccess:
		id, output, err = b.buildMemberAccess(v)
	default:
		return "", "", errs.Internal(fmt.Sprintf("planner: unhandled node type %T", node))
	}
	if err != nil {
		return "", "", err
	}
	b.nodeID[node] = id
	b.nodeOut[node] = output
	return id, output, nil
}

func (b *builder) buildLiteral(v *ir.Literal) (string, error) {
	id := ir.Hash(v)
	b.addNode(&PlanNode{
		NodeID:       id,
		Kind:         ir.KindLiteral,
		IRHash:       id,
		OutputSchema: schemaOf(v),
		Lookback:     0,
		OutputOrder:  []string{"value"},
		Literal:      literalValueOf(v),
	})
	b.symbols[id] = map[string]bool{}
	return id, nil
}

// literalValueOf converts an ir.Literal's untyped Value into the fixed-shape
// PlanNode.Literal payload the evaluator reads; the frontend is trusted to
// have produced a Value matching LiteralKind (typecheck does not itself
// re-validate this, since it infers the type from LiteralKind directly).
func literalValueOf(v *ir.Literal) *LiteralValue {
	switch v.LiteralKind {
	case ir.TypeScalarBool:
		bv, _ := v.Value.(bool)
		return &LiteralValue{Bool: bv, IsBool: true}
	case ir.TypeScalarInt:
		switch n := v.Value.(type) {
		case int64:
			return &LiteralValue{Num: float64(n)}
		case int:
			return &LiteralValue{Num: float64(n)}
		case float64:
			return &LiteralValue{Num: n}
		default:
			return &LiteralValue{}
		}
	default: // TypeScalarNumber
		switch n := v.Value.(type) {
		case float64:
			return &LiteralValue{Num: n}
		case int:
			return &LiteralValue{Num: float64(n)}
		case int64:
			return &LiteralValue{Num: float64(n)}
		default:
			return &LiteralValue{}
		}
	}
}

func (b *builder) buildSourceRef(v *ir.SourceRef) (string, error) {
	id := ir.Hash(v)
	n := &PlanNode{
		NodeID:       id,
		Kind:         ir.KindSourceRef,
		IRHash:       id,
		OutputSchema: schemaOf(v),
		Lookback:     0,
		OutputOrder:  []string{"value"},
		Alignment:    Alignment{Policy: "inner", Timeframe: v.Timeframe},
	}
	if v.Source == "" || v.Source == "ohlcv" {
		n.DataReq = &DataRequirement{
			Symbol: v.Symbol, Timeframe: v.Timeframe, Source: string(v.Source), Field: v.Field,
		}
		b.operators["source_ref"] = true
		b.addSourceUsage(string(v.Source), v.Field)
	} else {
		n.DataReq = &DataRequirement{
			Symbol: v.Symbol, Timeframe: v.Timeframe, Source: v.Source,
		}
		b.addSourceUsage(v.Source, "")
	}
	b.addNode(n)
	syms := map[string]bool{}
	if v.Symbol != "" {
		syms[v.Symbol] = true
	}
	b.symbols[id] = syms
	return id, nil
}

func (b *builder) buildCall(v *ir.Call) (string, error) {
	meta, ok := b.cat.Find(v.IndicatorID)
	if !ok {
		return "", errs.UnknownIndicator(v.IndicatorID)
	}
	b.indicators[meta.ID] = true

	parentIDs := make([]string, 0, len(v.Inputs))
	parentOutputs := make([]string, 0, len(v.Inputs))
	syms := map[string]bool{}
	for _, in := range v.Inputs {
		pid, pout, err := b.build(in)
		if err != nil {
			return "", err
		}
		parentIDs = append(parentIDs, pid)
		parentOutputs = append(parentOutputs, pout)
		mergeSymbolsInto(syms, b.symbols[pid])
	}
	id := ir.Hash(v)
	b.symbols[id] = syms

	params := map[string]any{}
	for _, p := range v.Params {
		params[p.Name] = p.Value
	}

	if meta.Expand != nil {
		expanded, err := meta.Expand(v.Inputs, params)
		if err != nil {
			return "", err
		}
		bindings := map[string]string{}
		var valueID string
		for _, out := range meta.Outputs {
			sub, ok := expanded[out.Name]
			if !ok {
				return "", errs.Internal(fmt.Sprintf("indicator %q expand did not produce output %q", meta.ID, out.Name))
			}
			subID, _, err := b.build(sub)
			if err != nil {
				return "", err
			}
			bindings[out.Name] = subID
			if out.Name == "value" || valueID == "" {
				valueID = subID
			}
		}
		b.compositeBindings[id] = bindings
		// The composite Call node is transparent: every later reference to
		// this *ir.Call pointer resolves directly to its "value" sub-node.
		return valueID, nil
	}

	align := alignmentOf(parentIDs, b.byID)
	hint, err := b.kernels.WarmupHint(meta.RuntimeBinding, params)
	if err != nil {
		return "", errs.Internal(fmt.Sprintf("indicator %q: %v", meta.ID, err))
	}
	lookback := ownWarmup(hint) + maxLookback(parentIDs, b.byID)

	outputOrder := make([]string, len(meta.Outputs))
	for i, o := range meta.Outputs {
		outputOrder[i] = o.Name
	}
	n := &PlanNode{
		NodeID:        id,
		Kind:          ir.KindCall,
		IRHash:        id,
		Parents:       parentIDs,
		ParentOutputs: parentOutputs,
		Kernel:        &KernelBinding{ID: meta.RuntimeBinding, Params: params},
		OutputSchema:  schemaOf(v),
		Lookback:      lookback,
		OwnWarmup:     ownWarmup(hint),
		Alignment:     align,
		OutputOrder:   outputOrder,
	}
	b.addNode(n)

	bindings := map[string]string{}
	for _, out := range meta.Outputs {
		bindings[out.Name] = id
	}
	b.compositeBindings[id] = bindings
	return id, nil
}

func (b *builder) buildBinaryOp(v *ir.BinaryOp) (string, error) {
	lhs, lhsOut, err := b.build(v.Lhs)
	if err != nil {
		return "", err
	}
	rhs, rhsOut, err := b.build(v.Rhs)
	if err != nil {
		return "", err
	}
	syms := map[string]bool{}
	mergeSymbolsInto(syms, b.symbols[lhs])
	mergeSymbolsInto(syms, b.symbols[rhs])
	if len(syms) > 1 {
		return "", errs.AlignmentErr(symbolList(b.symbols[lhs]), symbolList(b.symbols[rhs]), "mismatched symbols without an explicit selector")
	}
	id := ir.Hash(v)
	b.symbols[id] = syms
	b.operators[string(v.Op)] = true

	parentIDs := []string{lhs, rhs}
	align := alignmentOf(parentIDs, b.byID)
	lookback := maxLookback(parentIDs, b.byID)
	b.addNode(&PlanNode{
		NodeID:        id,
		Kind:          ir.KindBinaryOp,
		IRHash:        id,
		Parents:       parentIDs,
		ParentOutputs: []string{lhsOut, rhsOut},
		OutputSchema:  schemaOf(v),
		Lookback:      lookback,
		Alignment:     align,
		OutputOrder:   []string{"value"},
		BinOp:         v.Op,
	})
	return id, nil
}

func (b *builder) buildUnaryOp(v *ir.UnaryOp) (string, error) {
	child, childOut, err := b.build(v.Child)
	if err != nil {
		return "", err
	}
	id := ir.Hash(v)
	b.symbols[id] = b.symbols[child]
	b.operators[string(v.Op)] = true

	parentIDs := []string{child}
	b.addNode(&PlanNode{
		NodeID:        id,
		Kind:          ir.KindUnaryOp,
		IRHash:        id,
		Parents:       parentIDs,
		ParentOutputs: []string{childOut},
		OutputSchema:  schemaOf(v),
		Lookback:      maxLookback(parentIDs, b.byID),
		Alignment:     alignmentOf(parentIDs, b.byID),
		OutputOrder:   []string{"value"},
		UnOp:          v.Op,
	})
	return id, nil
}

func (b *builder) buildTimeShift(v *ir.TimeShift) (string, error) {
	child, childOut, err := b.build(v.Child)
	if err != nil {
		return "", err
	}
	id := ir.Hash(v)
	b.symbols[id] = b.symbols[child]
	b.operators["time_shift"] = true

	warmup := 0
	if v.DeltaUnit == "bars" && v.Delta > 0 {
		warmup = int(v.Delta)
	}
	parentIDs := []string{child}
	b.addNode(&PlanNode{
		NodeID:        id,
		Kind:          ir.KindTimeShift,
		IRHash:        id,
		Parents:       parentIDs,
		ParentOutputs: []string{childOut},
		OutputSchema:  schemaOf(v),
		Lookback:      warmup + maxLookback(parentIDs, b.byID),
		OwnWarmup:     warmup,
		Alignment:     alignmentOf(parentIDs, b.byID),
		OutputOrder:   []string{"value"},
		ShiftDelta:    v.Delta,
		ShiftUnit:     v.DeltaUnit,
	})
	return id, nil
}

func (b *builder) buildFilter(v *ir.Filter) (string, error) {
	coll, collOut, err := b.build(v.Collection)
	if err != nil {
		return "", err
	}
	id := ir.Hash(v)
	b.symbols[id] = b.symbols[coll]
	b.operators["filter"] = true

	parentIDs := []string{coll}
	b.addNode(&PlanNode{
		NodeID:          id,
		Kind:            ir.KindFilter,
		IRHash:          id,
		Parents:         parentIDs,
		ParentOutputs:   []string{collOut},
		OutputSchema:    schemaOf(v),
		Lookback:        maxLookback(parentIDs, b.byID),
		Alignment:       alignmentOf(parentIDs, b.byID),
		OutputOrder:     []string{"value"},
		FilterPredicate: v.Predicate,
	})
	return id, nil
}

func (b *builder) buildAggregate(v *ir.Aggregate) (string, error) {
	coll, collOut, err := b.build(v.Collection)
	if err != nil {
		return "", err
	}
	id := ir.Hash(v)
	b.symbols[id] = b.symbols[coll]
	b.operators["aggregate_"+string(v.Reducer)] = true

	parentIDs := []string{coll}
	b.addNode(&PlanNode{
		NodeID:        id,
		Kind:          ir.KindAggregate,
		IRHash:        id,
		Parents:       parentIDs,
		ParentOutputs: []string{collOut},
		OutputSchema:  schemaOf(v),
		Lookback:      maxLookback(parentIDs, b.byID),
		Alignment:     alignmentOf(parentIDs, b.byID),
		OutputOrder:   []string{"value"},
		AggField:      v.Field,
		AggReducer:    v.Reducer,
	})
	return id, nil
}

func (b *builder) buildMemberAccess(v *ir.MemberAccess) (string, string, error) {
	childID, _, err := b.build(v.Child)
	if err != nil {
		return "", "", err
	}
	// An Expand-based composite Call resolves to its "value" sub-node, so its
	// bindings are keyed by the Call's own hash rather than by childID.
	key := childID
	if call, isCall := v.Child.(*ir.Call); isCall {
		key = ir.Hash(call)
	}
	bindings, ok := b.compositeBindings[key]
	if !ok {
		return "", "", errs.Internal(fmt.Sprintf("member access %q on non-structured node", v.Name))
	}
	target, ok := bindings[v.Name]
	if !ok {
		return "", "", errs.UnknownField("structured", v.Name)
	}
	// MemberAccess is transparent, same as a composite Call: it contributes
	// no PlanNode of its own, only a pointer-identity alias to target, tagged
	// with which named output was selected (ParentOutputs is how a consuming
	// node later tells this apart from the composite's other outputs when
	// they all collapse onto the same target node_id, as dedicated
	// multi-output kernels do).
	return target, v.Name, nil
}

func (b *builder) addNode(n *PlanNode) {
	if _, exists := b.byID[n.NodeID]; exists {
		return // structurally identical node already emitted (CSE)
	}
	b.byID[n.NodeID] = n
	b.order = append(b.order, n)
}

func (b *builder) addSourceUsage(source, field string) {
	if source != "" {
		b.operators["source:"+source] = true
	}
}

func (b *builder) manifest() CapabilityManifest {
	sources := map[string]bool{}
	fields := map[string]bool{}
	for _, n := range b.order {
		if n.DataReq == nil {
			continue
		}
		if n.DataReq.Source != "" {
			sources[n.DataReq.Source] = true
		}
		if n.DataReq.Field != "" {
			fields[n.DataReq.Field] = true
		}
	}
	return CapabilityManifest{
		Sources:    sortedKeys(sources),
		Fields:     sortedKeys(fields),
		Operators:  sortedKeys(b.operators),
		Indicators: sortedKeys(b.indicators),
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func mergeSymbolsInto(dst, src map[string]bool) {
	for s := range src {
		dst[s] = true
	}
}

func symbolList(syms map[string]bool) string {
	out := make([]string, 0, len(syms))
	for s := range syms {
		out = append(out, s)
	}
	sort.Strings(out)
	return fmt.Sprintf("%v", out)
}

func maxLookback(ids []string, byID map[string]*PlanNode) int {
	max := 0
	for _, id := range ids {
		if n, ok := byID[id]; ok && n.Lookback > max {
			max = n.Lookback
		}
	}
	return max
}

func ownWarmup(h kernel.WarmupHint) int {
	switch h.Kind {
	case kernel.WarmupWindow, kernel.WarmupRecursive:
		return h.Length
	default:
		return 0
	}
}

func schemaOf(n ir.Node) map[string]string {
	t := n.Type()
	if t == nil {
		return map[string]string{"value": "unknown"}
	}
	if t.Kind == ir.TypeStructured {
		out := make(map[string]string, len(t.Fields))
		for name, ft := range t.Fields {
			out[name] = string(ft.Kind)
		}
		return out
	}
	return map[string]string{"value": string(t.Kind)}
}
