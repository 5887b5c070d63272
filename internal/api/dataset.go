package api

import (
	"fmt"

	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/types"
)

// DatasetPayload is the wire shape a preview/validate/analyze request
// carries its market data in: one entry per (symbol, timeframe, source,
// field) numeric or boolean series, plus one entry per trades/order-book/
// liquidation collection. Grounded on the teacher's REST handlers decoding
// a typed JSON request body into domain values before calling into
// executor/storage (handlers_executions.go), generalized here from workflow
// parameters to Dataset series.
type DatasetPayload struct {
	Series      []SeriesPayload     `json:"series"`
	Collections []CollectionPayload `json:"collections"`
}

type SeriesPayload struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Source     string    `json:"source"`
	Field      string    `json:"field"`
	Kind       string    `json:"kind"` // "number" or "bool"
	Timestamps []int64   `json:"timestamps"`
	Values     []float64 `json:"values,omitempty"`
	BoolValues []bool    `json:"bool_values,omitempty"`
	Mask       []bool    `json:"mask"`
}

type CollectionPayload struct {
	Symbol    string              `json:"symbol"`
	Timeframe string              `json:"timeframe"`
	Source    string              `json:"source"`
	Records   []CollectionRecord  `json:"records"`
}

type CollectionRecord struct {
	Timestamp int64              `json:"timestamp"`
	Fields    map[string]float64 `json:"fields"`
}

// BuildDataset materializes a dataset.Dataset from its wire payload.
func BuildDataset(p DatasetPayload) (*dataset.Dataset, error) {
	ds := dataset.New()
	for _, sp := range p.Series {
		source := types.Source(sp.Source)
		if !source.IsValid() {
			return nil, fmt.Errorf("api: unknown source %q for %s/%s/%s", sp.Source, sp.Symbol, sp.Timeframe, sp.Field)
		}
		attrs := types.Attrs{Symbol: sp.Symbol, Timeframe: sp.Timeframe, Source: source, Field: sp.Field}
		switch sp.Kind {
		case "bool":
			s, err := types.New(attrs, types.KindBool, sp.Timestamps, sp.BoolValues, sp.Mask)
			if err != nil {
				return nil, fmt.Errorf("api: bool series %s: %w", attrs, err)
			}
			ds.PutBoolSeries(s)
		case "number", "":
			s, err := types.New(attrs, types.KindNumber, sp.Timestamps, sp.Values, sp.Mask)
			if err != nil {
				return nil, fmt.Errorf("api: numeric series %s: %w", attrs, err)
			}
			ds.PutSeries(s)
		default:
			return nil, fmt.Errorf("api: unknown series kind %q for %s", sp.Kind, attrs)
		}
	}
	for _, cp := range p.Collections {
		source := types.Source(cp.Source)
		if !source.IsValid() {
			return nil, fmt.Errorf("api: unknown collection source %q for %s/%s", cp.Source, cp.Symbol, cp.Timeframe)
		}
		records := make([]dataset.Collection, len(cp.Records))
		for i, r := range cp.Records {
			records[i] = dataset.Collection{Timestamp: r.Timestamp, Fields: r.Fields}
		}
		ds.PutCollection(cp.Symbol, cp.Timeframe, source, records)
	}
	return ds, nil
}
