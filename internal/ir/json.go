package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ToJSON renders n as the tagged-union wire format of section 6: keys sort
// alphabetically (encoding/json's map[string]any Marshal already does this)
// and numeric literal/param values are canonical decimal strings rather than
// native JSON numbers, so re-encoding never drifts on float formatting.
func ToJSON(n Node) ([]byte, error) {
	return json.Marshal(toWire(n))
}

// FromJSON parses the tagged-union wire format back into a Node tree. The
// round-trip contract `FromJSON(ToJSON(E)) == E` (section 8) holds up to
// Span, which wire format does not carry.
func FromJSON(data []byte) (Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ir: FromJSON: expected object, got %T", raw)
	}
	return fromWire(m)
}

func toWire(n Node) map[string]any {
	if n == nil {
		return nil
	}
	out := map[string]any{"type": string(n.Kind())}
	switch v := n.(type) {
	case *Literal:
		out["kind"] = string(v.LiteralKind)
		out["value"] = canonicalScalar(v.Value)
	case *SourceRef:
		out["symbol"] = v.Symbol
		out["exchange"] = v.Exchange
		out["timeframe"] = v.Timeframe
		out["source"] = v.Source
		out["field"] = v.Field
	case *Call:
		out["indicator_id"] = v.IndicatorID
		params := map[string]any{}
		order := make([]string, 0, len(v.Params))
		for _, p := range v.Params {
			params[p.Name] = canonicalScalar(p.Value)
			order = append(order, p.Name)
		}
		out["params"] = params
		out["param_order"] = order
		inputs := make([]map[string]any, len(v.Inputs))
		for i, in := range v.Inputs {
			inputs[i] = toWire(in)
		}
		out["inputs"] = inputs
	case *BinaryOp:
		out["op"] = string(v.Op)
		out["lhs"] = toWire(v.Lhs)
		out["rhs"] = toWire(v.Rhs)
	case *UnaryOp:
		out["op"] = string(v.Op)
		out["child"] = toWire(v.Child)
	case *TimeShift:
		out["child"] = toWire(v.Child)
		out["delta"] = strconv.FormatInt(v.Delta, 10)
		out["delta_unit"] = v.DeltaUnit
	case *Filter:
		out["collection"] = toWire(v.Collection)
		out["predicate"] = v.Predicate
	case *Aggregate:
		out["collection"] = toWire(v.Collection)
		out["field"] = v.Field
		out["reducer"] = string(v.Reducer)
	case *MemberAccess:
		out["child"] = toWire(v.Child)
		out["name"] = v.Name
	default:
		panic(fmt.Sprintf("ir: ToJSON: unhandled node type %T", n))
	}
	return out
}

func fromWire(m map[string]any) (Node, error) {
	kind, _ := m["type"].(string)
	switch Kind(kind) {
	case KindLiteral:
		lk := TypeKind(str(m["kind"]))
		raw := str(m["value"])
		var val any
		switch lk {
		case TypeScalarNumber:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, err
			}
			val = f
		case TypeScalarBool:
			val = raw == "true"
		case TypeScalarInt:
			i, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, err
			}
			val = i
		default:
			return nil, fmt.Errorf("ir: FromJSON: unknown literal kind %q", lk)
		}
		return &Literal{Value: val, LiteralKind: lk}, nil
	case KindSourceRef:
		return &SourceRef{
			Symbol: str(m["symbol"]), Exchange: str(m["exchange"]), Timeframe: str(m["timeframe"]),
			Source: str(m["source"]), Field: str(m["field"]),
		}, nil
	case KindCall:
		paramsRaw, _ := m["params"].(map[string]any)
		orderRaw, _ := m["param_order"].([]any)
		params := make([]Param, 0, len(orderRaw))
		for _, o := range orderRaw {
			name := o.(string)
			params = append(params, Param{Name: name, Value: parseParamValue(str(paramsRaw[name]))})
		}
		inputsRaw, _ := m["inputs"].([]any)
		inputs := make([]Node, 0, len(inputsRaw))
		for _, ir := range inputsRaw {
			child, err := fromWire(ir.(map[string]any))
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, child)
		}
		return &Call{IndicatorID: str(m["indicator_id"]), Params: params, Inputs: inputs}, nil
	case KindBinaryOp:
		lhs, err := fromWireField(m["lhs"])
		if err != nil {
			return nil, err
		}
		rhs, err := fromWireField(m["rhs"])
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: BinOp(str(m["op"])), Lhs: lhs, Rhs: rhs}, nil
	case KindUnaryOp:
		child, err := fromWireField(m["child"])
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: UnOp(str(m["op"])), Child: child}, nil
	case KindTimeShift:
		child, err := fromWireField(m["child"])
		if err != nil {
			return nil, err
		}
		delta, err := strconv.ParseInt(str(m["delta"]), 10, 64)
		if err != nil {
			return nil, err
		}
		return &TimeShift{Child: child, Delta: delta, DeltaUnit: str(m["delta_unit"])}, nil
	case KindFilter:
		coll, err := fromWireField(m["collection"])
		if err != nil {
			return nil, err
		}
		return &Filter{Collection: coll, Predicate: str(m["predicate"])}, nil
	case KindAggregate:
		coll, err := fromWireField(m["collection"])
		if err != nil {
			return nil, err
		}
		return &Aggregate{Collection: coll, Field: str(m["field"]), Reducer: Reducer(str(m["reducer"]))}, nil
	case KindMemberAccess:
		child, err := fromWireField(m["child"])
		if err != nil {
			return nil, err
		}
		return &MemberAccess{Child: child, Name: str(m["name"])}, nil
	default:
		return nil, fmt.Errorf("ir: FromJSON: unknown node type %q", kind)
	}
}

func fromWireField(v any) (Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ir: FromJSON: expected object field, got %T", v)
	}
	return fromWire(m)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// parseParamValue recovers a Go scalar from a canonical decimal/bool/string
// wire representation. Call params are untyped at the wire boundary;
// normalize's coerce_params step assigns the catalog's declared kind.
func parseParamValue(raw string) any {
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
