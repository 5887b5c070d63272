// Package dataset implements the keyed container of market-data Series
// described in section 3 of the specification: a Dataset maps
// (symbol, timeframe, source) to a { field -> Series } record, and exposes a
// Select view restricted by any subset of those dimensions.
package dataset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/smilemakc/ta-engine/internal/types"
)

// Numeric series are float64-valued; boolean signal series are bool-valued.
// Trades/order-book/liquidation collections are not series at all -- they
// are handled by the Collection type below and reduced into series by
// Filter/Aggregate IR nodes at evaluation time.
type NumSeries = types.Series[float64]
type BoolSeries = types.Series[bool]

type key struct {
	symbol    string
	timeframe string
	source    types.Source
}

// Dataset is an immutable-once-populated keyed container of Series. It is
// safe for concurrent reads; writers must use WithAppended to publish a new
// view rather than mutating series in place (section 5: "Dataset series are
// immutable once appended").
type Dataset struct {
	mu     sync.RWMutex
	fields map[key]map[string]*NumSeries
	// bools holds boolean-valued fields (rare at the dataset-ingest level,
	// but the schema supports it for completeness with Series<bool> leaves).
	bools      map[key]map[string]*BoolSeries
	collections map[key][]Collection
}

// Collection is the abstract, field-free record set backing trades/
// order-book/liquidation sources, consumed only by ir.Filter/ir.Aggregate.
type Collection struct {
	Timestamp int64
	Fields    map[string]float64
}

// New returns an empty Dataset.
func New() *Dataset {
	return &Dataset{
		fields:      make(map[key]map[string]*NumSeries),
		bools:       make(map[key]map[string]*BoolSeries),
		collections: make(map[key][]Collection),
	}
}

// PutSeries registers (or replaces) a numeric field series under its attrs.
func (d *Dataset) PutSeries(s *NumSeries) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := keyOf(s.Attrs())
	m, ok := d.fields[k]
	if !ok {
		m = make(map[string]*NumSeries)
		d.fields[k] = m
	}
	m[s.Attrs().Field] = s
}

// PutBoolSeries registers (or replaces) a boolean field series.
func (d *Dataset) PutBoolSeries(s *BoolSeries) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := keyOf(s.Attrs())
	m, ok := d.bools[k]
	if !ok {
		m = make(map[string]*BoolSeries)
		d.bools[k] = m
	}
	m[s.Attrs().Field] = s
}

// PutCollection registers the record set for a (symbol, timeframe, source)
// trio that is not reducible to a plain field series (trades, order book,
// liquidations).
func (d *Dataset) PutCollection(symbol, timeframe string, source types.Source, records []Collection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collections[key{symbol, timeframe, source}] = records
}

func keyOf(a types.Attrs) key {
	return key{symbol: a.Symbol, timeframe: a.Timeframe, source: a.Source}
}

// Field looks up a numeric field series by its full attribute tuple.
func (d *Dataset) Field(symbol, timeframe string, source types.Source, field string) (*NumSeries, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.fields[key{symbol, timeframe, source}]
	if !ok {
		return nil, false
	}
	s, ok := m[field]
	return s, ok
}

// BoolField looks up a boolean field series.
func (d *Dataset) BoolField(symbol, timeframe string, source types.Source, field string) (*BoolSeries, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.bools[key{symbol, timeframe, source}]
	if !ok {
		return nil, false
	}
	s, ok := m[field]
	return s, ok
}

// Records returns the record set for a collection source.
func (d *Dataset) Records(symbol, timeframe string, source types.Source) ([]Collection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	recs, ok := d.collections[key{symbol, timeframe, source}]
	return recs, ok
}

// Schema describes the dimensions a Dataset carries, used by the planner to
// resolve SourceRef nodes and by validate() to report MissingData early.
type Schema struct {
	Fields      map[string][]string // "symbol/timeframe/source" -> field names
	Collections map[string]bool     // "symbol/timeframe/source" -> present
}

// DescribeSchema produces a deterministic (sorted) snapshot of the dataset's
// shape, used as the second half of a plan-cache key (ir_hash x
// dataset_schema).
func (d *Dataset) DescribeSchema() Schema {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := Schema{Fields: map[string][]string{}, Collections: map[string]bool{}}
	for k, m := range d.fields {
		id := fmt.Sprintf("%s/%s/%s", k.symbol, k.timeframe, k.source)
		names := make([]string, 0, len(m))
		for f := range m {
			names = append(names, f)
		}
		sort.Strings(names)
		out.Fields[id] = names
	}
	for k, m := range d.bools {
		id := fmt.Sprintf("%s/%s/%s", k.symbol, k.timeframe, k.source)
		names := append([]string(nil), out.Fields[id]...)
		for f := range m {
			names = append(names, f)
		}
		sort.Strings(names)
		out.Fields[id] = names
	}
	for k := range d.collections {
		id := fmt.Sprintf("%s/%s/%s", k.symbol, k.timeframe, k.source)
		out.Collections[id] = true
	}
	return out
}

// Bars returns the number of bars available for a numeric field, or 0 if it
// does not exist, used by the planner to populate DataRequirement.have_bars
// style diagnostics via errs.MissingData.
func (d *Dataset) Bars(symbol, timeframe string, source types.Source, field string) int {
	s, ok := d.Field(symbol, timeframe, source, field)
	if !ok {
		return 0
	}
	return s.Len()
}
