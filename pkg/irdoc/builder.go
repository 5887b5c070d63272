package irdoc

// DocumentBuilder provides a fluent interface for assembling a Document,
// grounded on the teacher's pkg/workflow/builder.go DefinitionBuilder --
// same "each setter returns the builder, Build() yields the value type"
// shape, generalized from workflow name/triggers/nodes/edges to an
// expression document's name/version/description/expression.
type DocumentBuilder struct {
	d Document
}

func NewDocumentBuilder() *DocumentBuilder { return &DocumentBuilder{} }

func (b *DocumentBuilder) Name(name string) *DocumentBuilder { b.d.Name = name; return b }
func (b *DocumentBuilder) Version(v string) *DocumentBuilder { b.d.Version = v; return b }
func (b *DocumentBuilder) Description(desc string) *DocumentBuilder {
	b.d.Description = desc
	return b
}
func (b *DocumentBuilder) Expression(n *Node) *DocumentBuilder { b.d.Expression = n; return b }
func (b *DocumentBuilder) Build() Document                     { return b.d }

// The constructors below build *Node values directly (not through a
// secondary builder type) since every IR variant's fields are set once and
// never incrementally appended to, unlike Document's growing Nodes/Edges
// lists in the teacher's equivalent -- Call's Inputs is the one exception
// and takes a variadic slice instead.

// Lit builds a Literal node. kind is one of "number"|"bool"|"int".
func Lit(value any, kind string) *Node {
	return &Node{Type: "Literal", Value: value, Kind: kind}
}

// Src builds a SourceRef node.
func Src(symbol, exchange, timeframe, source, field string) *Node {
	return &Node{Type: "SourceRef", Symbol: symbol, Exchange: exchange, Timeframe: timeframe, Source: source, Field: field}
}

// Call builds a Call node invoking indicator with the given scalar params
// over inputs.
func Call(indicator string, params map[string]any, inputs ...*Node) *Node {
	return &Node{Type: "Call", Indicator: indicator, Params: params, Inputs: inputs}
}

// Bin builds a BinaryOp node.
func Bin(op string, lhs, rhs *Node) *Node {
	return &Node{Type: "BinaryOp", Op: op, Lhs: lhs, Rhs: rhs}
}

// Un builds a UnaryOp node.
func Un(op string, child *Node) *Node {
	return &Node{Type: "UnaryOp", Op: op, Child: child}
}

// Shift builds a TimeShift node. unit is "bars" or "duration_ns".
func Shift(child *Node, delta int64, unit string) *Node {
	return &Node{Type: "TimeShift", Child: child, Delta: delta, DeltaUnit: unit}
}

// Filt builds a Filter node over a trades/order-book/liquidation collection.
func Filt(collection *Node, predicate string) *Node {
	return &Node{Type: "Filter", Collection: collection, Predicate: predicate}
}

// Agg builds an Aggregate node reducing a (possibly filtered) collection.
func Agg(collection *Node, field, reducer string) *Node {
	return &Node{Type: "Aggregate", Collection: collection, Field: field, Reducer: reducer}
}

// Member builds a MemberAccess node projecting one named output off a
// multi-output Call.
func Member(child *Node, name string) *Node {
	return &Node{Type: "MemberAccess", Child: child, Name: name}
}
