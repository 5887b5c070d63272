// Package planner implements section 4.4: turning typed IR plus a dataset
// schema into a topologically ordered, deterministically serializable Plan
// that the evaluator (package evaluator) executes without ever consulting
// the catalog or IR again.
package planner

import "github.com/smilemakc/ta-engine/internal/ir"

// KernelBinding names the kernel kind a Call PlanNode is bound to, plus its
// coerced parameters -- exactly the pair the evaluator needs to construct a
// kernel.State.
type KernelBinding struct {
	ID     string
	Params map[string]any
}

// DataRequirement is one distinct leaf series the plan needs populated
// before evaluation, with the minimum history depth demanded by the
// steepest consumer anywhere in the DAG (section 4.4 step 4).
type DataRequirement struct {
	Symbol    string
	Timeframe string
	Source    string
	Field     string
	MinBars   int
}

// Alignment records how a node's output timeline relates to its inputs'
// (section 4.4 step 5).
type Alignment struct {
	Policy    string // "inner" | "ffill"
	Timeframe string
}

// LiteralValue carries a Literal node's constant payload -- the one piece of
// per-node information section 6's wire format has no slot for but the
// evaluator needs verbatim to execute a Literal node without re-consulting
// the IR.
type LiteralValue struct {
	Num    float64
	Bool   bool
	IsBool bool
}

// PlanNode is one entry of the topologically sorted node list. IRHash
// doubles as NodeID: structurally identical subtrees always collapse to the
// same node, which is what makes the plan cache and CSE coherent across
// sessions.
//
// The operator-specific fields below (BinOp, UnOp, Shift*, Filter*, Agg*,
// Literal, OutputOrder) exist so that the evaluator (package evaluator) can
// execute a node from the Plan alone, without re-walking the IR it was
// built from -- the Plan is meant to be the evaluator's only input per
// section 4.5. They are additive to section 6's documented wire shape
// (wire.go renders them as extra keys; a reader that only knows the
// documented keys can ignore them).
type PlanNode struct {
	NodeID       string
	Kind         ir.Kind
	IRHash       string
	Parents      []string // dependency node_ids, topologically before this one
	Kernel       *KernelBinding
	DataReq      *DataRequirement
	OutputSchema map[string]string
	Lookback     int
	OwnWarmup    int
	Alignment    Alignment

	// ParentOutputs names, per entry of Parents, which named output of that
	// parent this node actually consumes -- "value" for every ordinary
	// single-output parent, or the MemberAccess-selected name when a parent
	// is a dedicated multi-output Call (adx, vortex) whose Outputs all
	// collapse to the same NodeID (see buildMemberAccess). Always the same
	// length as Parents.
	ParentOutputs []string

	// OutputOrder names this node's outputs in catalog-declared order. For
	// every Kind except a multi-output Call it is exactly ["value"]; for a
	// multi-output Call (adx, vortex, ...) it mirrors IndicatorMeta.Outputs,
	// and the evaluator reads the first name off kernel.Emit.Value and every
	// later name off kernel.Emit.Extra, per the convention documented on
	// catalog.builtins_composite.go's dedicatedComposites.
	OutputOrder []string

	Literal         *LiteralValue // KindLiteral
	BinOp           ir.BinOp      // KindBinaryOp
	UnOp            ir.UnOp       // KindUnaryOp
	ShiftDelta      int64         // KindTimeShift
	ShiftUnit       string        // KindTimeShift
	FilterPredicate string        // KindFilter
	AggField        string        // KindAggregate
	AggReducer      ir.Reducer    // KindAggregate
}

// RootOutput names one output exposed at the top of a plan: RootID's "value"
// output for an ordinary expression, the single name a MemberAccess root
// selected off a dedicated composite, or one of several entries when the
// root itself is a bare multi-output Call (every declared output exposed,
// e.g. previewing macd(close) with no member access names macd/signal/
// histogram all at once).
type RootOutput struct {
	Name   string
	NodeID string
}

// Plan is the full output of Build: a topologically sorted node list plus
// the capability manifest summarizing what it touches (section 4.4 step 7).
// RootID is RootOutputs[0].NodeID, kept as its own field for callers that
// only care about a single-output expression.
type Plan struct {
	SchemaVersion      int
	Nodes              []*PlanNode
	RootID             string
	RootOutputs        []RootOutput
	CapabilityManifest CapabilityManifest
}

// CapabilityManifest is the used sources x fields x operators x indicators
// summary attached to every plan, so hosts can gate on required capabilities
// without re-walking the IR.
type CapabilityManifest struct {
	Sources    []string
	Fields     []string
	Operators  []string
	Indicators []string
}
