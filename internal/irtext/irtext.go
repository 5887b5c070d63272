// Package irtext loads and dumps pkg/irdoc.Document, a YAML-encoded
// convenience format for hand-authored expressions, compiling to and from
// the canonical internal/ir.Node algebra. Grounded on the teacher's
// pkg/workflow YAML definitions (gopkg.in/yaml.v3) plus the loader that
// turns them into a runnable graph (internal/application/executor's
// config-driven construction) -- here the "runnable graph" is simply
// normalize/plan/evaluate's input, ir.Node, rather than a workflow.Engine.
//
// Section 6 names JSON (internal/ir/json.go) as the canonical wire format;
// this package is a frontend convenience sitting above it, not a
// replacement for it.
package irtext

import (
	"fmt"

	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/pkg/irdoc"

	"gopkg.in/yaml.v3"
)

// Load parses a YAML document and compiles its expression into an ir.Node.
func Load(data []byte) (irdoc.Document, ir.Node, error) {
	var doc irdoc.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return irdoc.Document{}, nil, fmt.Errorf("irtext: parse yaml: %w", err)
	}
	if doc.Expression == nil {
		return doc, nil, fmt.Errorf("irtext: document %q has no expression", doc.Name)
	}
	root, err := Compile(doc.Expression)
	if err != nil {
		return doc, nil, err
	}
	return doc, root, nil
}

// Dump decompiles root into an irdoc.Node and renders it as a named,
// versioned YAML Document.
func Dump(name, version, description string, root ir.Node) ([]byte, error) {
	doc := irdoc.Document{
		Name:        name,
		Version:     version,
		Description: description,
		Expression:  Decompile(root),
	}
	return yaml.Marshal(doc)
}

// Compile walks an irdoc.Node tree and builds the equivalent ir.Node tree.
// It performs no normalization or typechecking -- callers still run
// normalize.Normalize/Typecheck on the result, exactly as for any other IR
// origin (section 1: "whether IR originates from a text DSL, programmatic
// builder, or JSON deserialization is a frontend concern").
func Compile(n *irdoc.Node) (ir.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch ir.Kind(n.Type) {
	case ir.KindLiteral:
		return compileLiteral(n)
	case ir.KindSourceRef:
		return &ir.SourceRef{
			Symbol: n.Symbol, Exchange: n.Exchange, Timeframe: n.Timeframe,
			Source: n.Source, Field: n.Field,
		}, nil
	case ir.KindCall:
		inputs := make([]ir.Node, len(n.Inputs))
		for i, in := range n.Inputs {
			compiled, err := Compile(in)
			if err != nil {
				return nil, err
			}
			inputs[i] = compiled
		}
		params := make([]ir.Param, 0, len(n.Params))
		for name, value := range n.Params {
			params = append(params, ir.Param{Name: name, Value: value})
		}
		return &ir.Call{IndicatorID: n.Indicator, Params: params, Inputs: inputs}, nil
	case ir.KindBinaryOp:
		lhs, err := Compile(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := Compile(n.Rhs)
		if err != nil {
			return nil, err
		}
		return &ir.BinaryOp{Op: ir.BinOp(n.Op), Lhs: lhs, Rhs: rhs}, nil
	case ir.KindUnaryOp:
		child, err := Compile(n.Child)
		if err != nil {
			return nil, err
		}
		return &ir.UnaryOp{Op: ir.UnOp(n.Op), Child: child}, nil
	case ir.KindTimeShift:
		child, err := Compile(n.Child)
		if err != nil {
			return nil, err
		}
		return &ir.TimeShift{Child: child, Delta: n.Delta, DeltaUnit: n.DeltaUnit}, nil
	case ir.KindFilter:
		coll, err := Compile(n.Collection)
		if err != nil {
			return nil, err
		}
		return &ir.Filter{Collection: coll, Predicate: n.Predicate}, nil
	case ir.KindAggregate:
		coll, err := Compile(n.Collection)
		if err != nil {
			return nil, err
		}
		return &ir.Aggregate{Collection: coll, Field: n.Field, Reducer: ir.Reducer(n.Reducer)}, nil
	case ir.KindMemberAccess:
		child, err := Compile(n.Child)
		if err != nil {
			return nil, err
		}
		return &ir.MemberAccess{Child: child, Name: n.Name}, nil
	default:
		return nil, fmt.Errorf("irtext: unknown node type %q", n.Type)
	}
}

func compileLiteral(n *irdoc.Node) (ir.Node, error) {
	switch n.Kind {
	case "bool":
		v, _ := n.Value.(bool)
		return ir.NewLiteralBool(v), nil
	case "int":
		switch v := n.Value.(type) {
		case int:
			return ir.NewLiteralInt(int64(v)), nil
		case int64:
			return ir.NewLiteralInt(v), nil
		case float64:
			return ir.NewLiteralInt(int64(v)), nil
		default:
			return nil, fmt.Errorf("irtext: literal int has non-numeric value %v", n.Value)
		}
	case "number", "":
		switch v := n.Value.(type) {
		case float64:
			return ir.NewLiteralNumber(v), nil
		case int:
			return ir.NewLiteralNumber(float64(v)), nil
		default:
			return nil, fmt.Errorf("irtext: literal number has non-numeric value %v", n.Value)
		}
	default:
		return nil, fmt.Errorf("irtext: unknown literal kind %q", n.Kind)
	}
}

// Decompile is Compile's inverse, used by Dump and by round-trip tests.
func Decompile(n ir.Node) *irdoc.Node {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *ir.Literal:
		kind := "number"
		switch v.LiteralKind {
		case ir.TypeScalarBool:
			kind = "bool"
		case ir.TypeScalarInt:
			kind = "int"
		}
		return &irdoc.Node{Type: string(ir.KindLiteral), Value: v.Value, Kind: kind}
	case *ir.SourceRef:
		return &irdoc.Node{
			Type: string(ir.KindSourceRef), Symbol: v.Symbol, Exchange: v.Exchange,
			Timeframe: v.Timeframe, Source: v.Source, Field: v.Field,
		}
	case *ir.Call:
		params := make(map[string]any, len(v.Params))
		for _, p := range v.Params {
			params[p.Name] = p.Value
		}
		inputs := make([]*irdoc.Node, len(v.Inputs))
		for i, in := range v.Inputs {
			inputs[i] = Decompile(in)
		}
		return &irdoc.Node{Type: string(ir.KindCall), Indicator: v.IndicatorID, Params: params, Inputs: inputs}
	case *ir.BinaryOp:
		return &irdoc.Node{Type: string(ir.KindBinaryOp), Op: string(v.Op), Lhs: Decompile(v.Lhs), Rhs: Decompile(v.Rhs)}
	case *ir.UnaryOp:
		return &irdoc.Node{Type: string(ir.KindUnaryOp), Op: string(v.Op), Child: Decompile(v.Child)}
	case *ir.TimeShift:
		return &irdoc.Node{Type: string(ir.KindTimeShift), Child: Decompile(v.Child), Delta: v.Delta, DeltaUnit: v.DeltaUnit}
	case *ir.Filter:
		return &irdoc.Node{Type: string(ir.KindFilter), Collection: Decompile(v.Collection), Predicate: v.Predicate}
	case *ir.Aggregate:
		return &irdoc.Node{Type: string(ir.KindAggregate), Collection: Decompile(v.Collection), Field: v.Field, Reducer: string(v.Reducer)}
	case *ir.MemberAccess:
		return &irdoc.Node{Type: string(ir.KindMemberAccess), Child: Decompile(v.Child), Name: v.Name}
	default:
		return nil
	}
}
