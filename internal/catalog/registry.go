package catalog

import (
	"fmt"
	"sort"

	"github.com/smilemakc/ta-engine/internal/errs"
	"github.com/smilemakc/ta-engine/internal/ir"
)

// Catalog is the static, deterministic registry of section 4.2. It is
// built once at process startup by New() and never mutated afterward, so
// it is safe to share across every planner/evaluator session (section 5).
type Catalog struct {
	byID    map[string]*IndicatorMeta
	byAlias map[string]string // alias -> canonical id
	order   []string          // canonical ids in stable registration order
}

// kernelRegistry is the narrow subset of kernel.Registry the catalog needs;
// declared as an interface so catalog tests can stub it without pulling in
// the whole kernel package.
type kernelRegistry interface {
	Kinds() []string
}

// New builds the canonical catalog (section 4.2): every indicator named in
// section 4.1's "Canonical kernels" list, bound either directly to a kernel
// or expanded into a sub-DAG, per builtins_direct.go and
// builtins_composite.go.
func New() *Catalog {
	c := &Catalog{byID: map[string]*IndicatorMeta{}, byAlias: map[string]string{}}
	for _, m := range builtinIndicators() {
		c.register(m)
	}
	return c
}

func (c *Catalog) register(m *IndicatorMeta) {
	if _, exists := c.byID[m.ID]; exists {
		panic(fmt.Sprintf("catalog: duplicate registration for id %q", m.ID))
	}
	c.byID[m.ID] = m
	c.order = append(c.order, m.ID)
	for _, a := range m.Aliases {
		c.byAlias[a] = m.ID
	}
}

// ValidateBindings checks every direct RuntimeBinding (and every Expand
// function's sub-DAG Call nodes, transitively) against a live kernel
// registry, catching catalog/kernel drift at startup rather than at first
// evaluation. Composite entries are checked by expanding them with a
// placeholder SourceRef per required field.
func (c *Catalog) ValidateBindings(kernels kernelRegistry) error {
	known := map[string]bool{}
	for _, k := range kernels.Kinds() {
		known[k] = true
	}
	for _, m := range c.List() {
		if m.RuntimeBinding != "" && !known[m.RuntimeBinding] {
			return fmt.Errorf("catalog: indicator %q binds to unknown kernel kind %q", m.ID, m.RuntimeBinding)
		}
		if m.Expand == nil {
			continue
		}
		if err := validateExpansion(m, known); err != nil {
			return err
		}
	}
	return nil
}

func validateExpansion(m *IndicatorMeta, known map[string]bool) error {
	inputs := make([]ir.Node, len(m.Semantics.RequiredFields))
	for i := range inputs {
		inputs[i] = &ir.SourceRef{}
	}
	params := map[string]any{}
	for _, p := range m.Params {
		params[p.Name] = p.Default
	}
	outputs, err := m.Expand(inputs, params)
	if err != nil {
		return fmt.Errorf("catalog: indicator %q failed to expand: %w", m.ID, err)
	}
	for _, n := range outputs {
		if err := walkCallKinds(n, known, m.ID); err != nil {
			return err
		}
	}
	return nil
}

func walkCallKinds(n ir.Node, known map[string]bool, indicatorID string) error {
	switch v := n.(type) {
	case *ir.Call:
		if !known[v.IndicatorID] {
			return fmt.Errorf("catalog: indicator %q expands into unknown kernel kind %q", indicatorID, v.IndicatorID)
		}
		for _, in := range v.Inputs {
			if err := walkCallKinds(in, known, indicatorID); err != nil {
				return err
			}
		}
	case *ir.BinaryOp:
		if err := walkCallKinds(v.Lhs, known, indicatorID); err != nil {
			return err
		}
		return walkCallKinds(v.Rhs, known, indicatorID)
	case *ir.UnaryOp:
		return walkCallKinds(v.Child, known, indicatorID)
	case *ir.TimeShift:
		return walkCallKinds(v.Child, known, indicatorID)
	}
	return nil
}

// List returns every registered IndicatorMeta in stable registration order.
func (c *Catalog) List() []*IndicatorMeta {
	out := make([]*IndicatorMeta, len(c.order))
	for i, id := range c.order {
		out[i] = c.byID[id]
	}
	return out
}

// Find resolves a name or alias to its canonical IndicatorMeta.
func (c *Catalog) Find(nameOrAlias string) (*IndicatorMeta, bool) {
	if m, ok := c.byID[nameOrAlias]; ok {
		return m, true
	}
	if id, ok := c.byAlias[nameOrAlias]; ok {
		return c.byID[id], true
	}
	return nil, false
}

// TypedParams is the coerced, typed parameter record produced by
// CoerceParams: canonical param name -> value of the declared ParamKind.
type TypedParams map[string]any

// CoerceParams resolves param aliases, fills defaults, and validates
// ranges/enums for raw (possibly alias-named, possibly partial) params
// against meta's declared ParamSpecs (section 4.2).
func (c *Catalog) CoerceParams(meta *IndicatorMeta, raw map[string]any) (TypedParams, error) {
	out := TypedParams{}
	resolved := map[string]any{}
	for k, v := range raw {
		name := k
		if canonical, ok := meta.ParamAliases[k]; ok {
			name = canonical
		}
		resolved[name] = v
	}
	for _, spec := range meta.Params {
		v, present := resolved[spec.Name]
		if !present {
			if spec.Required {
				return nil, errs.InvalidParameter(spec.Name, "required parameter missing")
			}
			out[spec.Name] = spec.Default
			continue
		}
		coerced, err := coerceOne(spec, v)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = coerced
	}
	for k := range resolved {
		if _, ok := meta.paramSpec(k); !ok {
			return nil, errs.InvalidParameter(k, fmt.Sprintf("unknown parameter for indicator %q", meta.ID))
		}
	}
	return out, nil
}

func coerceOne(spec ParamSpec, v any) (any, error) {
	switch spec.Kind {
	case ParamNumber:
		f, ok := asFloat(v)
		if !ok {
			return nil, errs.InvalidParameter(spec.Name, fmt.Sprintf("expected number, got %T", v))
		}
		if err := checkRange(spec, f); err != nil {
			return nil, err
		}
		return f, nil
	case ParamInt:
		f, ok := asFloat(v)
		if !ok {
			return nil, errs.InvalidParameter(spec.Name, fmt.Sprintf("expected int, got %T", v))
		}
		if err := checkRange(spec, f); err != nil {
			return nil, err
		}
		return int(f), nil
	case ParamBool:
		b, ok := v.(bool)
		if !ok {
			return nil, errs.InvalidParameter(spec.Name, fmt.Sprintf("expected bool, got %T", v))
		}
		return b, nil
	case ParamString:
		s, ok := v.(string)
		if !ok {
			return nil, errs.InvalidParameter(spec.Name, fmt.Sprintf("expected string, got %T", v))
		}
		if len(spec.Enum) > 0 && !contains(spec.Enum, s) {
			return nil, errs.InvalidParameter(spec.Name, fmt.Sprintf("value %q not in enum %v", s, spec.Enum))
		}
		return s, nil
	default:
		return nil, errs.InvalidParameter(spec.Name, fmt.Sprintf("unhandled param kind %q", spec.Kind))
	}
}

func checkRange(spec ParamSpec, f float64) error {
	if spec.Min != nil && f < *spec.Min {
		return errs.ParameterOutOfRange(spec.Name, f, *spec.Min, maxOrNil(spec.Max))
	}
	if spec.Max != nil && f > *spec.Max {
		return errs.ParameterOutOfRange(spec.Name, f, minOrNil(spec.Min), *spec.Max)
	}
	return nil
}

func maxOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func minOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// Export renders every IndicatorMeta as the deterministic, sorted-key JSON
// array described in section 6's "Catalog export" wire format, used for
// drift tests and external UIs.
func (c *Catalog) Export() []map[string]any {
	out := make([]map[string]any, 0, len(c.order))
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	for _, id := range ids {
		m := c.byID[id]
		outputs := make([]map[string]any, len(m.Outputs))
		for i, o := range m.Outputs {
			outputs[i] = map[string]any{"name": o.Name, "kind": string(o.Kind), "role": o.Role}
		}
		params := make([]map[string]any, len(m.Params))
		for i, p := range m.Params {
			params[i] = map[string]any{
				"name": p.Name, "kind": string(p.Kind), "required": p.Required, "default": p.Default,
			}
		}
		out = append(out, map[string]any{
			"id": m.ID, "display_name": m.DisplayName, "category": m.Category,
			"aliases": m.Aliases, "params": params, "outputs": outputs,
			"required_fields": m.Semantics.RequiredFields,
			"warmup_policy":   string(m.Semantics.WarmupPolicy),
		})
	}
	return out
}
