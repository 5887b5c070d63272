package planner

import (
	"encoding/json"
)

// wireNode mirrors section 6's Plan wire format field-for-field. Map keys
// inside Kernel.Params/OutputSchema are alphabetized by Go's encoding/json
// for byte-identical serialization across equal plans.
type wireNode struct {
	NodeID          string            `json:"node_id"`
	Kind            string            `json:"kind"`
	IRHash          string            `json:"ir_hash"`
	Parents         []string          `json:"parents"`
	Kernel          *wireKernel       `json:"kernel,omitempty"`
	DataRequirement *wireDataReq      `json:"data_requirement,omitempty"`
	OutputSchema    map[string]string `json:"output_schema"`
	Lookback        int               `json:"lookback"`
	Alignment       wireAlignment     `json:"alignment"`

	// Additive fields beyond section 6's documented shape: everything the
	// evaluator needs to execute this node without re-walking the IR it came
	// from. A reader that only knows the documented keys can ignore these.
	OutputOrder     []string       `json:"output_order,omitempty"`
	Literal         *wireLiteral   `json:"literal,omitempty"`
	BinOp           string         `json:"bin_op,omitempty"`
	UnOp            string         `json:"un_op,omitempty"`
	ShiftDelta      int64          `json:"shift_delta,omitempty"`
	ShiftUnit       string         `json:"shift_unit,omitempty"`
	FilterPredicate string         `json:"filter_predicate,omitempty"`
	AggField        string         `json:"agg_field,omitempty"`
	AggReducer      string         `json:"agg_reducer,omitempty"`
	ParentOutputs   []string       `json:"parent_outputs,omitempty"`
}

type wireLiteral struct {
	Num    float64 `json:"num"`
	Bool   bool    `json:"bool"`
	IsBool bool    `json:"is_bool"`
}

type wireKernel struct {
	ID     string         `json:"id"`
	Params map[string]any `json:"params"`
}

type wireDataReq struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Source    string `json:"source"`
	Field     string `json:"field"`
	MinBars   int    `json:"min_bars"`
}

type wireAlignment struct {
	Policy    string `json:"policy"`
	Timeframe string `json:"timeframe"`
}

type wireRootOutput struct {
	Name   string `json:"name"`
	NodeID string `json:"node_id"`
}

type wirePlan struct {
	SchemaVersion      int               `json:"schema_version"`
	Nodes              []wireNode        `json:"nodes"`
	RootID             string            `json:"root_id"`
	RootOutputs        []wireRootOutput  `json:"root_outputs,omitempty"`
	CapabilityManifest wireManifest      `json:"capability_manifest"`
}

type wireManifest struct {
	Sources    []string `json:"sources"`
	Fields     []string `json:"fields"`
	Operators  []string `json:"operators"`
	Indicators []string `json:"indicators"`
}

// MarshalJSON renders the Plan in section 6's deterministic wire format:
// same IR + dataset schema always produces byte-identical output, which is
// what makes plan-cache keys trustworthy.
func (p *Plan) MarshalJSON() ([]byte, error) {
	nodes := make([]wireNode, len(p.Nodes))
	for i, n := range p.Nodes {
		wn := wireNode{
			NodeID:          n.NodeID,
			Kind:            string(n.Kind),
			IRHash:          n.IRHash,
			Parents:         n.Parents,
			OutputSchema:    n.OutputSchema,
			Lookback:        n.Lookback,
			Alignment:       wireAlignment{Policy: n.Alignment.Policy, Timeframe: n.Alignment.Timeframe},
			OutputOrder:     n.OutputOrder,
			BinOp:           string(n.BinOp),
			UnOp:            string(n.UnOp),
			ShiftDelta:      n.ShiftDelta,
			ShiftUnit:       n.ShiftUnit,
			FilterPredicate: n.FilterPredicate,
			AggField:        n.AggField,
			AggReducer:      string(n.AggReducer),
			ParentOutputs:   n.ParentOutputs,
		}
		if wn.Parents == nil {
			wn.Parents = []string{}
		}
		if n.Kernel != nil {
			wn.Kernel = &wireKernel{ID: n.Kernel.ID, Params: n.Kernel.Params}
		}
		if n.DataReq != nil {
			wn.DataRequirement = &wireDataReq{
				Symbol: n.DataReq.Symbol, Timeframe: n.DataReq.Timeframe,
				Source: n.DataReq.Source, Field: n.DataReq.Field, MinBars: n.DataReq.MinBars,
			}
		}
		if n.Literal != nil {
			wn.Literal = &wireLiteral{Num: n.Literal.Num, Bool: n.Literal.Bool, IsBool: n.Literal.IsBool}
		}
		nodes[i] = wn
	}

	rootOutputs := make([]wireRootOutput, len(p.RootOutputs))
	for i, ro := range p.RootOutputs {
		rootOutputs[i] = wireRootOutput{Name: ro.Name, NodeID: ro.NodeID}
	}

	wp := wirePlan{
		SchemaVersion: p.SchemaVersion,
		Nodes:         nodes,
		RootID:        p.RootID,
		RootOutputs:   rootOutputs,
		CapabilityManifest: wireManifest{
			Sources:    p.CapabilityManifest.Sources,
			Fields:     p.CapabilityManifest.Fields,
			Operators:  p.CapabilityManifest.Operators,
			Indicators: p.CapabilityManifest.Indicators,
		},
	}
	return json.Marshal(wp)
}
