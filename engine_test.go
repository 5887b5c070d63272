package taengine_test

import (
	"testing"

	taengine "github.com/smilemakc/ta-engine"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/types"

	"github.com/stretchr/testify/require"
)

func closeSeries(t *testing.T, values []float64) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	ts := make([]int64, len(values))
	mask := make([]bool, len(values))
	for i := range values {
		ts[i] = int64(i + 1)
		mask[i] = true
	}
	s, err := types.New(types.Attrs{Symbol: "BTCUSDT", Timeframe: "1h", Source: types.SourceOHLCV, Field: "close"},
		types.KindNumber, ts, values, mask)
	require.NoError(t, err)
	ds.PutSeries(s)
	return ds
}

func smaOfClose(period int64) ir.Node {
	return &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: period}},
		Inputs: []ir.Node{
			&ir.SourceRef{Symbol: "BTCUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close"},
		},
	}
}

func TestEnginePreviewComputesSMA(t *testing.T) {
	e := taengine.New()
	ds := closeSeries(t, []float64{10, 11, 12, 13, 14})

	result, err := e.Preview(smaOfClose(3), ds)
	require.NoError(t, err)
	require.NotEmpty(t, result.SeriesByOutput)
}

func TestEngineAnalyzeReportsLookback(t *testing.T) {
	e := taengine.New()
	result, err := e.Analyze(smaOfClose(14))
	require.NoError(t, err)
	require.Equal(t, 14, result.Lookback)
}

func TestEngineValidateRejectsUnknownIndicator(t *testing.T) {
	e := taengine.New()
	result := e.Validate(&ir.Call{IndicatorID: "not_real"}, dataset.Schema{})
	require.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
}

func TestEngineNewSessionInitializesIncrementalEvaluator(t *testing.T) {
	e := taengine.New()
	ds := closeSeries(t, []float64{10, 11, 12})
	sess, plan, err := e.NewSession(smaOfClose(2), ds.DescribeSchema())
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, plan)
}
