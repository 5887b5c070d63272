// Package ir implements the canonical Intermediate Representation described
// in section 3 of the specification: a single tagged-variant node algebra
// with stable structural hashing, used by every later stage (normalize,
// typecheck, planner, evaluator) instead of the multiple duplicated
// DSL/algebra/handle representations a hand-rolled frontend would otherwise
// grow.
package ir

import "fmt"

// Kind discriminates the node variants of section 3's IR sum type.
type Kind string

const (
	KindLiteral      Kind = "Literal"
	KindSourceRef    Kind = "SourceRef"
	KindCall         Kind = "Call"
	KindBinaryOp     Kind = "BinaryOp"
	KindUnaryOp      Kind = "UnaryOp"
	KindTimeShift    Kind = "TimeShift"
	KindFilter       Kind = "Filter"
	KindAggregate    Kind = "Aggregate"
	KindMemberAccess Kind = "MemberAccess"
)

// Span is an optional diagnostics offset pair into the original source
// text; the core never interprets it, only carries it through to errors.
type Span struct {
	Start int
	End   int
}

// TypeKind is the type tag vocabulary of section 3.
type TypeKind string

const (
	TypeScalarNumber TypeKind = "scalar_number"
	TypeScalarBool   TypeKind = "scalar_bool"
	TypeScalarInt    TypeKind = "scalar_int"

	TypeSeriesNumber TypeKind = "series_number"
	TypeSeriesBool   TypeKind = "series_bool"

	TypeCollectionTrades      TypeKind = "collection_trades"
	TypeCollectionBook        TypeKind = "collection_book"
	TypeCollectionLiquidation TypeKind = "collection_liquidations"

	TypeStructured TypeKind = "structured"
)

// Type is the cached type tag attached to a node after typecheck.
// Structured carries the name->type map for multi-output indicator results.
type Type struct {
	Kind   TypeKind
	Fields map[string]Type
}

func Scalar(k TypeKind) Type    { return Type{Kind: k} }
func SeriesOf(k TypeKind) Type  { return Type{Kind: k} }
func Collection(k TypeKind) Type { return Type{Kind: k} }

func Structured(fields map[string]Type) Type {
	return Type{Kind: TypeStructured, Fields: fields}
}

func (t Type) IsSeries() bool {
	return t.Kind == TypeSeriesNumber || t.Kind == TypeSeriesBool
}

func (t Type) IsNumericSeriesOrScalar() bool {
	return t.Kind == TypeSeriesNumber || t.Kind == TypeScalarNumber || t.Kind == TypeScalarInt
}

func (t Type) IsBoolSeriesOrScalar() bool {
	return t.Kind == TypeSeriesBool || t.Kind == TypeScalarBool
}

func (t Type) String() string {
	if t.Kind == TypeStructured {
		return fmt.Sprintf("Structured(%v)", t.Fields)
	}
	return string(t.Kind)
}

// Param is one ordered (name, value) pair of a Call node's scalar
// parameter record. Params preserve declaration order so that positional
// canonicalization (normalize step 2) is stable.
type Param struct {
	Name  string
	Value any
}

// BinOp enumerates the BinaryOp operators of section 3.
type BinOp string

const (
	OpAdd BinOp = "+"
	OpSub BinOp = "-"
	OpMul BinOp = "*"
	OpDiv BinOp = "/"
	OpMod BinOp = "%"
	OpEq  BinOp = "=="
	OpNeq BinOp = "!="
	OpLt  BinOp = "<"
	OpLte BinOp = "<="
	OpGt  BinOp = ">"
	OpGte BinOp = ">="
	OpAnd BinOp = "&"
	OpOr  BinOp = "|"
)

func (o BinOp) IsComparison() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	default:
		return false
	}
}

func (o BinOp) IsArithmetic() bool {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	default:
		return false
	}
}

func (o BinOp) IsLogical() bool { return o == OpAnd || o == OpOr }

// UnOp enumerates the UnaryOp operators of section 3.
type UnOp string

const (
	OpNeg UnOp = "neg"
	OpNot UnOp = "not"
)

// Reducer enumerates Aggregate reducers over trades/order-book collections.
type Reducer string

const (
	ReduceSum   Reducer = "sum"
	ReduceMean  Reducer = "mean"
	ReduceMin   Reducer = "min"
	ReduceMax   Reducer = "max"
	ReduceCount Reducer = "count"
)

// Node is the common interface satisfied by every IR variant. Nodes are
// value-like: two structurally equal nodes must produce equal Hash()
// results regardless of pointer identity, which is what makes CSE and plan
// caching possible (section 3).
type Node interface {
	Kind() Kind
	Span() *Span
	SetSpan(Span)
	Type() *Type
	SetType(Type)
}

// base is embedded by every concrete node and carries the optional
// diagnostics span and cached type tag common to all variants.
type base struct {
	span *Span
	typ  *Type
}

func (b *base) Span() *Span     { return b.span }
func (b *base) SetSpan(s Span)  { b.span = &s }
func (b *base) Type() *Type     { return b.typ }
func (b *base) SetType(t Type)  { b.typ = &t }

// Literal is a constant scalar value.
type Literal struct {
	base
	Value any // float64, bool, or int64 depending on LiteralKind
	LiteralKind TypeKind
}

func (n *Literal) Kind() Kind { return KindLiteral }

func NewLiteralNumber(v float64) *Literal { return &Literal{Value: v, LiteralKind: TypeScalarNumber} }
func NewLiteralBool(v bool) *Literal      { return &Literal{Value: v, LiteralKind: TypeScalarBool} }
func NewLiteralInt(v int64) *Literal      { return &Literal{Value: v, LiteralKind: TypeScalarInt} }

// SourceRef references a leaf market-data series. Symbol/Exchange/Timeframe
// may be empty before normalization; normalize step 4 fills Source/Field
// defaults and the planner requires Symbol to be resolved (directly or via
// an enclosing selector) before planning succeeds.
type SourceRef struct {
	base
	Symbol    string
	Exchange  string
	Timeframe string
	Source    string // ohlcv|trades|orderbook|liquidation
	Field     string
}

func (n *SourceRef) Kind() Kind { return KindSourceRef }

// Call is an indicator invocation: an ordered parameter record plus input
// expressions. Params is kept ordered (not a Go map) to preserve the
// positional-argument canonicalization order from normalize step 2.
type Call struct {
	base
	IndicatorID string
	Params      []Param
	Inputs      []Node
}

func (n *Call) Kind() Kind { return KindCall }

func (n *Call) Param(name string) (any, bool) {
	for _, p := range n.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// BinaryOp is a two-operand arithmetic/comparison/logical expression.
type BinaryOp struct {
	base
	Op       BinOp
	Lhs, Rhs Node
}

func (n *BinaryOp) Kind() Kind { return KindBinaryOp }

// UnaryOp is a one-operand expression (negation or boolean not).
type UnaryOp struct {
	base
	Op    UnOp
	Child Node
}

func (n *UnaryOp) Kind() Kind { return KindUnaryOp }

// TimeShift shifts a child series by delta bars (DeltaUnit="bars") or an
// absolute duration in nanoseconds (DeltaUnit="duration_ns"). Positive delta
// looks backward (lag); negative delta looks forward.
type TimeShift struct {
	base
	Child     Node
	Delta     int64
	DeltaUnit string
}

func (n *TimeShift) Kind() Kind { return KindTimeShift }

// Filter restricts a trades/order-book/liquidation Collection to records
// matching Predicate, an expr-lang expression text evaluated per record
// (see internal/normalize for the compiled-predicate wiring).
type Filter struct {
	base
	Collection Node
	Predicate  string
}

func (n *Filter) Kind() Kind { return KindFilter }

// Aggregate reduces a (possibly filtered) Collection into a numeric Series
// by applying Reducer to Field on every bar-aligned bucket of records.
type Aggregate struct {
	base
	Collection Node
	Field      string
	Reducer    Reducer
}

func (n *Aggregate) Kind() Kind { return KindAggregate }

// MemberAccess projects one named output out of a Structured-typed child
// (a multi-output indicator Call).
type MemberAccess struct {
	base
	Child Node
	Name  string
}

func (n *MemberAccess) Kind() Kind { return KindMemberAccess }
