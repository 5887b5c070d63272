package evaluator

import (
	"context"
	"fmt"
	"sort"

	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/errs"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/planner"
	"github.com/smilemakc/ta-engine/internal/types"
)

// Event is one incoming tick fed to Session.Step: either a single field
// update (Field set, Record nil) against a numeric/boolean series leaf, or a
// full record (Record set) appended to a trades/order-book/liquidation
// collection leaf.
type Event struct {
	Symbol    string
	Timeframe string
	Source    string
	Field     string
	Timestamp int64
	Value     float64
	Available bool
	Record    map[string]float64
}

func (e Event) leafKey() string {
	return fmt.Sprintf("%s/%s/%s/%s", e.Symbol, e.Timeframe, e.Source, e.Field)
}

// Session runs a Plan incrementally against a Dataset that grows one event
// at a time. Rather than give every node kind its own stateful incremental
// update rule, Session recomputes the full Plan via Batch on every Step: a
// deliberate simplification (see the evaluator entry in the design ledger)
// that makes incremental-vs-batch parity true by construction -- both modes
// call the same pure per-kind functions -- at the cost of O(history) work
// per event rather than O(1), and of session memory that grows with history
// length rather than staying bounded at the plan's declared lookback. That
// is a real deviation from section 5's "allocation-bounded, no unbounded
// buffering beyond declared lookback" resource model, not merely a
// performance nit: it is accepted here because bounding a leaf to its
// lookback window would make that leaf's Batch recompute produce only the
// trimmed window's worth of output, breaking the full-history
// batch-equals-incremental equality the incremental replay scenario
// (spec section 8, scenario 5) requires over an entire session's history.
// Only Call nodes would benefit from genuine incremental kernel.State
// stepping without this trade-off (carrying one persistent kernel.State
// per Call node across Steps instead of re-deriving it from Batch); that
// optimization is left for a future pass since it requires threading
// incremental single-row evaluation through every non-Call node kind too
// (BinaryOp, Filter, Aggregate, ...), not just Call.
type Session struct {
	plan    *planner.Plan
	kernels *kernel.Registry
	ds      *dataset.Dataset
	lastTS  map[string]int64
	result  *BatchResult
}

// Initialize starts a fresh Session over an empty dataset.
func Initialize(plan *planner.Plan, kernels *kernel.Registry) *Session {
	return &Session{
		plan:    plan,
		kernels: kernels,
		ds:      dataset.New(),
		lastTS:  map[string]int64{},
	}
}

// Step applies one event: validates strict per-leaf ordering (section 4.1),
// appends it to the session's dataset, and recomputes the plan. ctx is
// checked cooperatively before any mutation begins; Session.Step does not
// roll back partial work if ctx is cancelled mid-recompute, only refuses to
// start a new one once cancelled.
func (s *Session) Step(ctx context.Context, ev Event) (*BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := ev.leafKey()
	if last, ok := s.lastTS[key]; ok && ev.Timestamp <= last {
		return nil, errs.OrderingViolation(key, last, ev.Timestamp)
	}
	s.lastTS[key] = ev.Timestamp

	if ev.Record != nil {
		existing, _ := s.ds.Records(ev.Symbol, ev.Timeframe, types.Source(ev.Source))
		updated := append(append([]dataset.Collection(nil), existing...), dataset.Collection{
			Timestamp: ev.Timestamp, Fields: ev.Record,
		})
		s.ds.PutCollection(ev.Symbol, ev.Timeframe, types.Source(ev.Source), updated)
	} else if err := s.appendField(ev); err != nil {
		return nil, err
	}

	result, err := Batch(s.plan, s.ds, s.kernels)
	if err != nil {
		return nil, err
	}
	s.result = result
	return result, nil
}

func (s *Session) appendField(ev Event) error {
	attrs := types.Attrs{Symbol: ev.Symbol, Timeframe: ev.Timeframe, Source: types.Source(ev.Source), Field: ev.Field}
	if existing, ok := s.ds.Field(ev.Symbol, ev.Timeframe, types.Source(ev.Source), ev.Field); ok {
		next, err := existing.WithAppended([]int64{ev.Timestamp}, []float64{ev.Value}, []bool{ev.Available})
		if err != nil {
			return errs.Internal(err.Error())
		}
		s.ds.PutSeries(next)
		return nil
	}
	next, err := types.New(attrs, types.KindNumber, []int64{ev.Timestamp}, []float64{ev.Value}, []bool{ev.Available})
	if err != nil {
		return errs.Internal(err.Error())
	}
	s.ds.PutSeries(next)
	return nil
}

// Replay feeds a full ordered history through Step, used by the
// initialize-then-replay-from-scratch half of the snapshot/restore
// equivalence property.
func (s *Session) Replay(ctx context.Context, events []Event) (*BatchResult, error) {
	var result *BatchResult
	for _, ev := range events {
		r, err := s.Step(ctx, ev)
		if err != nil {
			return nil, err
		}
		result = r
	}
	return result, nil
}

// leafSnapshot persists one SourceRef leaf's accumulated series.
type leafSnapshot struct {
	Symbol, Timeframe, Source, Field string
	Timestamps                      []int64
	Nums                             []float64
	Bools                            []bool
	IsBool                           bool
	Mask                             []bool
}

type collSnapshot struct {
	Symbol, Timeframe, Source string
	Records                   []dataset.Collection
}

// Snapshot is the full wire-serializable session state: every leaf series
// and collection the plan reads from, plus the per-leaf ordering cursor. It
// intentionally carries the full accumulated dataset rather than only the
// last kernel payload, because reconstructing the pre-snapshot history that
// replay-equivalence requires is not derivable from forward-only kernel
// state alone once non-Call nodes are recomputed from scratch each Step.
// Like Step's per-event cost, this grows with history rather than staying
// bounded at the plan's lookback (see the Step doc comment above); the same
// full-history parity requirement that rules out trimming Step's working
// set rules out trimming the snapshot payload too.
type Snapshot struct {
	SchemaVersion int
	Leaves        []leafSnapshot
	Collections   []collSnapshot
	LastTS        map[string]int64
}

// Snapshot captures every leaf this plan touches, not the derived node
// results: Restore rebuilds those deterministically via Batch.
func (s *Session) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{SchemaVersion: s.plan.SchemaVersion, LastTS: copyLastTS(s.lastTS)}
	seen := map[string]bool{}
	for _, n := range s.plan.Nodes {
		if n.Kind != ir.KindSourceRef || n.DataReq == nil {
			continue
		}
		req := n.DataReq
		id := fmt.Sprintf("%s/%s/%s/%s", req.Symbol, req.Timeframe, req.Source, req.Field)
		if seen[id] {
			continue
		}
		seen[id] = true
		if req.Field == "" {
			recs, _ := s.ds.Records(req.Symbol, req.Timeframe, types.Source(req.Source))
			snap.Collections = append(snap.Collections, collSnapshot{
				Symbol: req.Symbol, Timeframe: req.Timeframe, Source: req.Source, Records: recs,
			})
			continue
		}
		if series, ok := s.ds.Field(req.Symbol, req.Timeframe, types.Source(req.Source), req.Field); ok {
			snap.Leaves = append(snap.Leaves, leafSnapshot{
				Symbol: req.Symbol, Timeframe: req.Timeframe, Source: req.Source, Field: req.Field,
				Timestamps: series.Timestamps(), Nums: series.Values(), Mask: series.Mask(),
			})
			continue
		}
		if series, ok := s.ds.BoolField(req.Symbol, req.Timeframe, types.Source(req.Source), req.Field); ok {
			snap.Leaves = append(snap.Leaves, leafSnapshot{
				Symbol: req.Symbol, Timeframe: req.Timeframe, Source: req.Source, Field: req.Field,
				Timestamps: series.Timestamps(), Bools: series.Values(), Mask: series.Mask(), IsBool: true,
			})
		}
	}
	sort.Slice(snap.Leaves, func(i, j int) bool {
		return fmt.Sprint(snap.Leaves[i]) < fmt.Sprint(snap.Leaves[j])
	})
	return snap, nil
}

// Restore rebuilds a Session from a Snapshot produced by an earlier
// Session.Snapshot call against the same Plan.
func Restore(plan *planner.Plan, kernels *kernel.Registry, snap *Snapshot) (*Session, error) {
	if snap.SchemaVersion != plan.SchemaVersion {
		return nil, errs.SnapshotMismatch(plan.SchemaVersion, snap.SchemaVersion)
	}
	ds := dataset.New()
	for _, l := range snap.Leaves {
		attrs := types.Attrs{Symbol: l.Symbol, Timeframe: l.Timeframe, Source: types.Source(l.Source), Field: l.Field}
		if l.IsBool {
			s, err := types.New(attrs, types.KindBool, l.Timestamps, l.Bools, l.Mask)
			if err != nil {
				return nil, errs.Internal(err.Error())
			}
			ds.PutBoolSeries(s)
			continue
		}
		s, err := types.New(attrs, types.KindNumber, l.Timestamps, l.Nums, l.Mask)
		if err != nil {
			return nil, errs.Internal(err.Error())
		}
		ds.PutSeries(s)
	}
	for _, c := range snap.Collections {
		ds.PutCollection(c.Symbol, c.Timeframe, types.Source(c.Source), c.Records)
	}
	s := &Session{plan: plan, kernels: kernels, ds: ds, lastTS: copyLastTS(snap.LastTS)}
	result, err := Batch(plan, ds, kernels)
	if err != nil {
		return nil, err
	}
	s.result = result
	return s, nil
}

func copyLastTS(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
