package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Hash returns the stable structural hash of a node: two structurally equal
// nodes (ignoring Span, which is diagnostics-only) hash identically
// regardless of pointer identity. This underwrites CSE in normalize and
// node_id assignment in the planner (section 3, section 4.4 step 1).
func Hash(n Node) string {
	h := sha256.New()
	writeNode(h, n)
	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (int, error)
}

func writeStr(h hashWriter, s string) {
	_, _ = h.Write([]byte{byte(len(s) >> 24), byte(len(s) >> 16), byte(len(s) >> 8), byte(len(s))})
	_, _ = h.Write([]byte(s))
}

func writeNode(h hashWriter, n Node) {
	if n == nil {
		writeStr(h, "<nil>")
		return
	}
	writeStr(h, string(n.Kind()))
	switch v := n.(type) {
	case *Literal:
		writeStr(h, string(v.LiteralKind))
		writeStr(h, canonicalScalar(v.Value))
	case *SourceRef:
		writeStr(h, v.Symbol)
		writeStr(h, v.Exchange)
		writeStr(h, v.Timeframe)
		writeStr(h, v.Source)
		writeStr(h, v.Field)
	case *Call:
		writeStr(h, v.IndicatorID)
		names := make([]string, len(v.Params))
		byName := map[string]any{}
		for i, p := range v.Params {
			names[i] = p.Name
			byName[p.Name] = p.Value
		}
		sort.Strings(names)
		for _, name := range names {
			writeStr(h, name)
			writeStr(h, canonicalScalar(byName[name]))
		}
		for _, in := range v.Inputs {
			writeNode(h, in)
		}
	case *BinaryOp:
		writeStr(h, string(v.Op))
		writeNode(h, v.Lhs)
		writeNode(h, v.Rhs)
	case *UnaryOp:
		writeStr(h, string(v.Op))
		writeNode(h, v.Child)
	case *TimeShift:
		writeStr(h, v.DeltaUnit)
		writeStr(h, strconv.FormatInt(v.Delta, 10))
		writeNode(h, v.Child)
	case *Filter:
		writeStr(h, v.Predicate)
		writeNode(h, v.Collection)
	case *Aggregate:
		writeStr(h, v.Field)
		writeStr(h, string(v.Reducer))
		writeNode(h, v.Collection)
	case *MemberAccess:
		writeStr(h, v.Name)
		writeNode(h, v.Child)
	default:
		panic(fmt.Sprintf("ir: Hash: unhandled node type %T", n))
	}
}

// canonicalScalar renders a parameter or literal value as the canonical
// decimal string representation required by section 6's wire format, so
// that hashing and JSON serialization agree on what "the same value" means.
func canonicalScalar(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 64)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", x)
	}
}
