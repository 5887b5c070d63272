// Package irdoc is the public, YAML-serializable document shape for an
// expression plus its metadata, grounded on the teacher's
// pkg/workflow/types.go Definition/NodeDef/EdgeDef record set: there a
// workflow definition is a YAML document of nodes/edges/triggers; here a
// document is one named expression tree over the same IR node algebra
// section 3 of the specification defines, serialized with the fields and
// yaml tags this teacher file uses for every record (lower_snake_case tag
// per field, pointer-valued optional children).
//
// This is a convenience format, not the canonical wire format: section 6
// names JSON (internal/ir/json.go) as canonical. irdoc exists because the
// teacher's workflow YAML is exactly the shape a frontend author would want
// for a hand-authored expression file, and gopkg.in/yaml.v3 is a
// dependency this engine's domain stack commits to carrying.
package irdoc

// Node mirrors one ir.Node variant. Only the fields relevant to Type are
// populated; Compile (package internal/irtext) validates the combination.
type Node struct {
	Type string `yaml:"type" json:"type"`

	// Literal
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
	Kind  string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// SourceRef
	Symbol    string `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Exchange  string `yaml:"exchange,omitempty" json:"exchange,omitempty"`
	Timeframe string `yaml:"timeframe,omitempty" json:"timeframe,omitempty"`
	Source    string `yaml:"source,omitempty" json:"source,omitempty"`
	Field     string `yaml:"field,omitempty" json:"field,omitempty"`

	// Call
	Indicator string         `yaml:"indicator,omitempty" json:"indicator,omitempty"`
	Params    map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Inputs    []*Node        `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	// BinaryOp
	Op  string `yaml:"op,omitempty" json:"op,omitempty"`
	Lhs *Node  `yaml:"lhs,omitempty" json:"lhs,omitempty"`
	Rhs *Node  `yaml:"rhs,omitempty" json:"rhs,omitempty"`

	// UnaryOp / TimeShift / Filter share Child/Collection naming per variant
	Child *Node `yaml:"child,omitempty" json:"child,omitempty"`

	// TimeShift
	Delta     int64  `yaml:"delta,omitempty" json:"delta,omitempty"`
	DeltaUnit string `yaml:"delta_unit,omitempty" json:"delta_unit,omitempty"`

	// Filter / Aggregate
	Collection *Node  `yaml:"collection,omitempty" json:"collection,omitempty"`
	Predicate  string `yaml:"predicate,omitempty" json:"predicate,omitempty"`
	Reducer    string `yaml:"reducer,omitempty" json:"reducer,omitempty"`

	// MemberAccess (also reuses Child above)
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// Document is one named, versioned expression file -- the unit a frontend
// author hand-writes and a host loads, mirroring the teacher's Definition
// (name/version/description + body) shape.
type Document struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
	Expression  *Node  `yaml:"expression" json:"expression"`
}
