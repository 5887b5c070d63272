// Package catalog implements the Indicator Catalog of section 4.2: a
// static, deterministic registry binding indicator ids to kernels (or to
// declarative sub-DAG expansions over simpler kernels) plus the metadata
// that drives planning, validation, and user-visible schemas.
package catalog

import (
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
)

// ParamKind is the scalar kind of one declared Call parameter.
type ParamKind string

const (
	ParamNumber ParamKind = "number"
	ParamInt    ParamKind = "int"
	ParamBool   ParamKind = "bool"
	ParamString ParamKind = "string"
)

// ParamSpec declares one named, typed, optionally-bounded Call parameter.
type ParamSpec struct {
	Name     string
	Kind     ParamKind
	Required bool
	Default  any
	Min, Max *float64
	Enum     []string
}

// OutputKind classifies a named indicator output for render hints.
type OutputKind string

const (
	OutputLine      OutputKind = "line"
	OutputBand      OutputKind = "band"
	OutputSignal    OutputKind = "signal"
	OutputHistogram OutputKind = "histogram"
)

// OutputSpec declares one named output of a (possibly multi-output)
// indicator.
type OutputSpec struct {
	Name string
	Kind OutputKind
	Role string
}

// WarmupPolicy mirrors kernel.WarmupKind at the catalog level so metadata
// can describe warmup behavior without importing kernel internals.
type WarmupPolicy = kernel.WarmupKind

const (
	WarmupWindow     = kernel.WarmupWindow
	WarmupRecursive  = kernel.WarmupRecursive
	WarmupCumulative = kernel.WarmupCumulative
	WarmupNone       = kernel.WarmupNone
)

// Semantics declares the data contract and warmup behavior of an indicator.
type Semantics struct {
	RequiredFields  []string
	OptionalFields  []string
	LookbackParams  []string // names of Params that feed the lookback computation
	DefaultLookback int
	WarmupPolicy    WarmupPolicy
}

// ExpandFunc builds a sub-DAG over simpler Call/BinaryOp/UnaryOp/TimeShift
// nodes for a composite indicator, returning one ir.Node per declared
// Output name. A nil ExpandFunc means the indicator binds directly to one
// kernel (RuntimeBinding); when such an indicator declares several outputs
// (adx, vortex), the first reads the kernel's Value and the rest read
// Emit.Extra by name.
type ExpandFunc func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error)

// IndicatorMeta is one catalog entry (section 3's IndicatorMeta record).
type IndicatorMeta struct {
	ID             string
	DisplayName    string
	Category       string
	Aliases        []string
	ParamAliases   map[string]string // alias -> canonical param name
	Params         []ParamSpec
	Outputs        []OutputSpec
	Semantics      Semantics
	RuntimeBinding string // kernel.Registry kind, when Expand == nil
	Expand         ExpandFunc
}

// SingleOutput reports whether meta declares exactly one output named
// "value" -- i.e. whether reading the Call node directly (without
// MemberAccess) is well-typed.
func (m *IndicatorMeta) SingleOutput() bool {
	return len(m.Outputs) == 1 && m.Outputs[0].Name == "value"
}

func (m *IndicatorMeta) paramSpec(name string) (ParamSpec, bool) {
	for _, p := range m.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}
