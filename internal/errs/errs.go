// Package errs defines the stable error taxonomy returned by every public
// entry point of the engine (section 7 of the specification). Each type
// carries a stable Kind() string so that hosts can switch on error class
// without string-matching Error() messages.
package errs

import "fmt"

// Kind is the stable, serializable error classification.
type Kind string

const (
	KindParseError         Kind = "ParseError"
	KindUnknownIndicator   Kind = "UnknownIndicator"
	KindUnknownField       Kind = "UnknownField"
	KindUnknownSource      Kind = "UnknownSource"
	KindInvalidParameter   Kind = "InvalidParameter"
	KindParameterRange     Kind = "ParameterOutOfRange"
	KindTypeMismatch       Kind = "TypeMismatch"
	KindAlignmentError     Kind = "AlignmentError"
	KindMissingData        Kind = "MissingData"
	KindCycleError         Kind = "CycleError"
	KindOrderingViolation  Kind = "OrderingViolation"
	KindSnapshotMismatch   Kind = "SnapshotMismatch"
	KindDivisionByZero     Kind = "DivisionByZero"
	KindInternalError      Kind = "InternalError"
)

// Span is an optional diagnostics offset pair, mirrored from ir.Span.
type Span struct {
	Start int
	End   int
}

// Error is the common shape every engine error satisfies; hosts can use a
// type switch on Kind() rather than parsing Error() text.
type Error interface {
	error
	Kind() Kind
	Details() map[string]any
}

type baseError struct {
	kind    Kind
	message string
	span    *Span
	details map[string]any
}

func (e *baseError) Error() string         { return e.message }
func (e *baseError) Kind() Kind            { return e.kind }
func (e *baseError) Details() map[string]any { return e.details }

func newBase(kind Kind, message string, details map[string]any) *baseError {
	if details == nil {
		details = map[string]any{}
	}
	return &baseError{kind: kind, message: message, details: details}
}

// WithSpan attaches a diagnostics span to an error produced by this package.
func WithSpan(err Error, span Span) Error {
	if be, ok := err.(*baseError); ok {
		clone := *be
		clone.span = &span
		return &clone
	}
	return err
}

func UnknownIndicator(name string) Error {
	return newBase(KindUnknownIndicator, fmt.Sprintf("unknown indicator %q", name), map[string]any{"name": name})
}

func UnknownField(source, field string) Error {
	return newBase(KindUnknownField, fmt.Sprintf("unknown field %q for source %q", field, source),
		map[string]any{"source": source, "field": field})
}

func UnknownSource(source string) Error {
	return newBase(KindUnknownSource, fmt.Sprintf("unknown source %q", source), map[string]any{"source": source})
}

// InvalidParameter reports a parameter that is malformed (wrong kind,
// unknown name, failed enum match) as opposed to merely out of range.
func InvalidParameter(name, reason string) Error {
	return newBase(KindInvalidParameter, fmt.Sprintf("invalid parameter %q: %s", name, reason),
		map[string]any{"name": name, "reason": reason})
}

func ParameterOutOfRange(name string, value, min, max any) Error {
	return newBase(KindParameterRange,
		fmt.Sprintf("parameter %q value %v out of range [%v, %v]", name, value, min, max),
		map[string]any{"name": name, "value": value, "min": min, "max": max})
}

func TypeMismatch(node, expected, actual string) Error {
	return newBase(KindTypeMismatch,
		fmt.Sprintf("node %s: expected type %s, got %s", node, expected, actual),
		map[string]any{"node": node, "expected": expected, "actual": actual})
}

func AlignmentErr(left, right, reason string) Error {
	return newBase(KindAlignmentError,
		fmt.Sprintf("cannot align %s with %s: %s", left, right, reason),
		map[string]any{"left": left, "right": right, "reason": reason})
}

func MissingData(symbol, timeframe, source, field string, have, need int) Error {
	return newBase(KindMissingData,
		fmt.Sprintf("missing data for %s/%s/%s/%s: have %d bars, need %d", symbol, timeframe, source, field, have, need),
		map[string]any{
			"symbol": symbol, "timeframe": timeframe, "source": source, "field": field,
			"have_bars": have, "need_bars": need,
		})
}

func CycleErr(cycle []string) Error {
	return newBase(KindCycleError, fmt.Sprintf("cycle detected among nodes: %v", cycle),
		map[string]any{"cycle": cycle})
}

func OrderingViolation(leaf string, lastTS, incomingTS int64) Error {
	return newBase(KindOrderingViolation,
		fmt.Sprintf("leaf %s: out-of-order event (last_ts=%d, incoming_ts=%d)", leaf, lastTS, incomingTS),
		map[string]any{"leaf": leaf, "last_ts": lastTS, "incoming_ts": incomingTS})
}

func SnapshotMismatch(expected, got int) Error {
	return newBase(KindSnapshotMismatch,
		fmt.Sprintf("snapshot schema mismatch: expected %d, got %d", expected, got),
		map[string]any{"expected_schema": expected, "got_schema": got})
}

func DivisionByZero() Error {
	return newBase(KindDivisionByZero, "division by zero", nil)
}

func Internal(message string) Error {
	return newBase(KindInternalError, "internal error: "+message, nil)
}
