package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/normalize"
	"github.com/smilemakc/ta-engine/internal/planner"
	"github.com/smilemakc/ta-engine/internal/types"
)

func closeSeries(t *testing.T, symbol, timeframe string, values []float64) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	ts := make([]int64, len(values))
	mask := make([]bool, len(values))
	for i := range values {
		ts[i] = int64(i+1) * 1e9
		mask[i] = true
	}
	s, err := types.New(types.Attrs{Symbol: symbol, Timeframe: timeframe, Source: types.SourceOHLCV, Field: "close"}, types.KindNumber, ts, values, mask)
	require.NoError(t, err)
	ds.PutSeries(s)
	return ds
}

func buildPlan(t *testing.T, root ir.Node) (*planner.Plan, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New()
	normalized, _, err := normalize.Normalize(root, cat)
	require.NoError(t, err)
	require.NoError(t, normalize.Typecheck(normalized, cat))
	plan, err := planner.Build(normalized, cat, kernel.NewRegistry(), dataset.Schema{})
	require.NoError(t, err)
	return plan, cat
}

func TestBatch_SMA_AvailableAfterWarmup(t *testing.T) {
	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: 3.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}},
	}
	plan, _ := buildPlan(t, root)
	ds := closeSeries(t, "BTC-USD", "1h", []float64{1, 2, 3, 4, 5})

	result, err := Batch(plan, ds, kernel.NewRegistry())
	require.NoError(t, err)
	cols, err := result.RootColumns(plan)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	col := cols[0]
	require.Equal(t, 5, col.Len())
	assert.False(t, col.Mask[0])
	assert.False(t, col.Mask[1])
	assert.True(t, col.Mask[2])
	assert.InDelta(t, 2.0, col.Nums[2], 1e-9)
	assert.InDelta(t, 4.0, col.Nums[4], 1e-9)
}

func TestBatch_BinaryOp_CloseMinusSMA(t *testing.T) {
	close := &ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}
	sma := &ir.Call{IndicatorID: "sma", Params: []ir.Param{{Name: "period", Value: 2.0}}, Inputs: []ir.Node{close}}
	root := &ir.BinaryOp{Op: ir.OpSub, Lhs: close, Rhs: sma}
	plan, _ := buildPlan(t, root)
	ds := closeSeries(t, "BTC-USD", "1h", []float64{1, 2, 3, 4})

	result, err := Batch(plan, ds, kernel.NewRegistry())
	require.NoError(t, err)
	cols, err := result.RootColumns(plan)
	require.NoError(t, err)
	col := cols[0]
	assert.False(t, col.Mask[0])
	assert.True(t, col.Mask[1])
	assert.InDelta(t, 3-2.5, col.Nums[2], 1e-9)
}

func TestBatch_DivisionByZeroIsUnavailable(t *testing.T) {
	root := &ir.BinaryOp{
		Op:  ir.OpDiv,
		Lhs: &ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"},
		Rhs: ir.NewLiteralNumber(0),
	}
	plan, _ := buildPlan(t, root)
	ds := closeSeries(t, "BTC-USD", "1h", []float64{1, 2, 3})

	result, err := Batch(plan, ds, kernel.NewRegistry())
	require.NoError(t, err)
	cols, err := result.RootColumns(plan)
	require.NoError(t, err)
	for _, ok := range cols[0].Mask {
		assert.False(t, ok)
	}
}

func TestBatch_TimeShiftBars_Lag(t *testing.T) {
	root := &ir.TimeShift{
		Child:     &ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"},
		Delta:     1,
		DeltaUnit: "bars",
	}
	plan, _ := buildPlan(t, root)
	ds := closeSeries(t, "BTC-USD", "1h", []float64{10, 20, 30})

	result, err := Batch(plan, ds, kernel.NewRegistry())
	require.NoError(t, err)
	cols, err := result.RootColumns(plan)
	require.NoError(t, err)
	col := cols[0]
	assert.False(t, col.Mask[0])
	assert.True(t, col.Mask[1])
	assert.InDelta(t, 10, col.Nums[1], 1e-9)
	assert.InDelta(t, 20, col.Nums[2], 1e-9)
}

func TestSession_ReplayMatchesBatch(t *testing.T) {
	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: 2.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}},
	}
	plan, _ := buildPlan(t, root)
	kernels := kernel.NewRegistry()
	ds := closeSeries(t, "BTC-USD", "1h", []float64{1, 2, 3, 4})
	batchResult, err := Batch(plan, ds, kernels)
	require.NoError(t, err)
	batchCols, err := batchResult.RootColumns(plan)
	require.NoError(t, err)

	session := Initialize(plan, kernels)
	values := []float64{1, 2, 3, 4}
	var sessionResult *BatchResult
	for i, v := range values {
		ev := Event{
			Symbol: "BTC-USD", Timeframe: "1h", Source: "ohlcv", Field: "close",
			Timestamp: int64(i+1) * 1e9, Value: v, Available: true,
		}
		sessionResult, err = session.Step(context.Background(), ev)
		require.NoError(t, err)
	}
	sessionCols, err := sessionResult.RootColumns(plan)
	require.NoError(t, err)
	assert.Equal(t, batchCols[0].Mask, sessionCols[0].Mask)
	assert.Equal(t, batchCols[0].Nums, sessionCols[0].Nums)
}

func TestSession_OrderingViolation(t *testing.T) {
	root := &ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}
	plan, _ := buildPlan(t, root)
	session := Initialize(plan, kernel.NewRegistry())
	ctx := context.Background()
	_, err := session.Step(ctx, Event{Symbol: "BTC-USD", Timeframe: "1h", Source: "ohlcv", Field: "close", Timestamp: 2e9, Value: 1, Available: true})
	require.NoError(t, err)
	_, err = session.Step(ctx, Event{Symbol: "BTC-USD", Timeframe: "1h", Source: "ohlcv", Field: "close", Timestamp: 1e9, Value: 2, Available: true})
	require.Error(t, err)
}

func TestSession_SnapshotRestoreEquivalence(t *testing.T) {
	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: 2.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}},
	}
	plan, _ := buildPlan(t, root)
	kernels := kernel.NewRegistry()
	ctx := context.Background()

	session := Initialize(plan, kernels)
	events := []Event{
		{Symbol: "BTC-USD", Timeframe: "1h", Source: "ohlcv", Field: "close", Timestamp: 1e9, Value: 1, Available: true},
		{Symbol: "BTC-USD", Timeframe: "1h", Source: "ohlcv", Field: "close", Timestamp: 2e9, Value: 2, Available: true},
	}
	_, err := session.Replay(ctx, events)
	require.NoError(t, err)

	snap, err := session.Snapshot()
	require.NoError(t, err)
	restored, err := Restore(plan, kernels, snap)
	require.NoError(t, err)

	tail := []Event{
		{Symbol: "BTC-USD", Timeframe: "1h", Source: "ohlcv", Field: "close", Timestamp: 3e9, Value: 3, Available: true},
	}
	fromRestore, err := restored.Replay(ctx, tail)
	require.NoError(t, err)

	full := Initialize(plan, kernels)
	fromScratch, err := full.Replay(ctx, append(events, tail...))
	require.NoError(t, err)

	a, err := fromRestore.RootColumns(plan)
	require.NoError(t, err)
	b, err := fromScratch.RootColumns(plan)
	require.NoError(t, err)
	assert.Equal(t, b[0].Mask, a[0].Mask)
	assert.Equal(t, b[0].Nums, a[0].Nums)
}
