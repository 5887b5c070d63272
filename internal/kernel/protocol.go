// Package kernel implements the uniform (state, update) -> (state', output,
// availability) contract of section 4.1, and the canonical kernel library
// built on top of it: rolling reducers, recursive smoothers, cumulative
// transforms, differenced/transformational kernels, and event-transition
// kernels. Most composite indicators (rsi, macd, ...) are NOT kernels; they
// are expanded by the catalog (package catalog) into sub-DAGs of these
// primitives, per the catalog's declared expansion strategy. The few the
// IR's operators cannot express are registered here as kernels of their
// own: adx, vortex, cci, mfi, klinger_kvo and fisher (composite.go), and
// swing_high/low, psar and supertrend (statefuls.go).
package kernel

import (
	"fmt"
	"sort"
)

// Value is the uniform operand/result carrier for a kernel step: either a
// numeric or boolean payload, with an availability flag marking whether it
// may be read semantically.
type Value struct {
	Num       float64
	Bool      bool
	IsBool    bool
	Available bool
}

// NumValue constructs an available numeric value.
func NumValue(v float64) Value { return Value{Num: v, Available: true} }

// BoolValue constructs an available boolean value.
func BoolValue(v bool) Value { return Value{Bool: v, IsBool: true, Available: true} }

// Unavailable constructs a placeholder value of the given kind.
func Unavailable(isBool bool) Value { return Value{IsBool: isBool} }

// Update is one tick fed to State.Step: a timestamp and the operand values
// aligned to it (one per kernel input slot).
type Update struct {
	Timestamp int64
	Inputs    []Value
}

// Emit is the result of one State.Step call. Extra carries additional named
// outputs for the small set of native multi-output composite kernels (adx,
// vortex) whose outputs cannot be decomposed into a sub-DAG of simpler
// kernels (section 4.2: "the catalog declares which" expansion strategy
// applies; Extra is the single-kernel strategy's multi-output escape
// hatch). Single-output kernels leave Extra nil.
type Emit struct {
	Value     Value
	Available bool
	Extra     map[string]Value
}

func unavailableEmit(isBool bool) Emit { return Emit{Value: Unavailable(isBool)} }

// WarmupKind classifies how a kernel's lookback/warmup behaves, mirroring
// IndicatorMeta.semantics.warmup_policy in section 3.
type WarmupKind string

const (
	WarmupWindow     WarmupKind = "window"
	WarmupRecursive  WarmupKind = "recursive"
	WarmupCumulative WarmupKind = "cumulative"
	WarmupNone       WarmupKind = "none"
)

// WarmupHint lets the planner compute lookback without instantiating a
// kernel: kind classifies the warmup behavior, Length is the number of
// leading samples needed before Step can emit availability=true.
type WarmupHint struct {
	Kind   WarmupKind
	Length int
}

// State is implemented by every concrete kernel instance. Step mutates the
// receiver in place and returns the emission for this tick; Snapshot/Restore
// round-trip the opaque state payload for section 6's snapshot envelope.
type State interface {
	Step(u Update) Emit
	Snapshot() ([]byte, error)
	WarmupHint() WarmupHint
}

// Factory constructs a cold State for a kernel kind from its coerced
// parameters.
type Factory func(params map[string]any) (State, error)

// Restorer rebuilds a State of a kernel kind from previously snapshotted
// bytes, without re-running warmup.
type Restorer func(payload []byte) (State, error)

// Spec is the one per-kind registration record: construction + restore.
type Spec struct {
	Kind     string
	New      Factory
	Restore  Restorer
}

// Registry is the static, process-wide table of kernel kinds. Unlike the
// indicator catalog (which maps user-facing names to kernels+schemas), the
// kernel registry is an implementation detail consulted only by the
// catalog and the evaluator.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds the canonical kernel registry (exhaustive for v1, per
// section 4.1): every rolling reducer, recursive smoother, cumulative
// transform, differenced/transformational kernel, and event-transition
// kernel.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]Spec)}
	registerRollingKernels(r)
	registerRecursiveKernels(r)
	registerCumulativeKernels(r)
	registerTransformKernels(r)
	registerEventKernels(r)
	registerStatefulKernels(r)
	registerCompositeKernels(r)
	return r
}

func (r *Registry) register(spec Spec) {
	if _, exists := r.specs[spec.Kind]; exists {
		panic(fmt.Sprintf("kernel: duplicate registration for kind %q", spec.Kind))
	}
	r.specs[spec.Kind] = spec
}

// New constructs a cold State for the given kernel kind.
func (r *Registry) New(kind string, params map[string]any) (State, error) {
	spec, ok := r.specs[kind]
	if !ok {
		return nil, fmt.Errorf("kernel: unknown kind %q", kind)
	}
	return spec.New(params)
}

// Restore rebuilds a State for the given kernel kind from snapshot bytes.
func (r *Registry) Restore(kind string, payload []byte) (State, error) {
	spec, ok := r.specs[kind]
	if !ok {
		return nil, fmt.Errorf("kernel: unknown kind %q", kind)
	}
	return spec.Restore(payload)
}

// WarmupHint returns the warmup hint for a kind given its params, without
// allocating a full State -- kernels satisfy this by constructing a cold
// instance, which is cheap by design (section 4.4 step 3).
func (r *Registry) WarmupHint(kind string, params map[string]any) (WarmupHint, error) {
	st, err := r.New(kind, params)
	if err != nil {
		return WarmupHint{}, err
	}
	return st.WarmupHint(), nil
}

// Kinds lists every registered kernel kind, sorted for determinism.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
