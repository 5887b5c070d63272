package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/types"
)

func closeDataset(t *testing.T, values []float64) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	ts := make([]int64, len(values))
	mask := make([]bool, len(values))
	for i := range values {
		ts[i] = int64(i+1) * 1e9
		mask[i] = true
	}
	s, err := types.New(types.Attrs{Symbol: "BTC-USD", Timeframe: "1h", Source: types.SourceOHLCV, Field: "close"}, types.KindNumber, ts, values, mask)
	require.NoError(t, err)
	ds.PutSeries(s)
	return ds
}

func TestPreview_SMA_ProducesSeriesAndPriceOverlayHint(t *testing.T) {
	cat := catalog.New()
	kernels := kernel.NewRegistry()
	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: 2.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}},
	}
	ds := closeDataset(t, []float64{1, 2, 3, 4})

	result, err := Preview(root, ds, cat, kernels)
	require.NoError(t, err)
	require.Len(t, result.Emissions, 1)
	assert.Equal(t, "sma", result.Emissions[0].Indicator)
	assert.Equal(t, "price_overlay", result.Emissions[0].RenderHints.PaneHint)
	col, ok := result.SeriesByOutput["value"]
	require.True(t, ok)
	assert.Equal(t, 4, col.Len())
}

func TestPreview_RSI_ProducesPaneHint(t *testing.T) {
	cat := catalog.New()
	kernels := kernel.NewRegistry()
	root := &ir.Call{
		IndicatorID: "rsi",
		Params:      []ir.Param{{Name: "period", Value: 3.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}},
	}
	ds := closeDataset(t, []float64{1, 2, 3, 4, 5, 4, 3})

	result, err := Preview(root, ds, cat, kernels)
	require.NoError(t, err)
	require.Len(t, result.Emissions, 1)
	assert.Equal(t, "pane", result.Emissions[0].RenderHints.PaneHint)
}

func TestValidate_UnknownIndicatorIsInvalid(t *testing.T) {
	cat := catalog.New()
	kernels := kernel.NewRegistry()
	root := &ir.Call{IndicatorID: "nope", Inputs: []ir.Node{&ir.SourceRef{Field: "close"}}}

	result := Validate(root, dataset.Schema{}, cat, kernels)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "UnknownIndicator", result.Errors[0].Kind)
}

func TestValidate_WarnsOnMissingSchemaField(t *testing.T) {
	cat := catalog.New()
	kernels := kernel.NewRegistry()
	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: 5.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}},
	}
	result := Validate(root, dataset.Schema{}, cat, kernels)
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
}

func TestAnalyze_ReportsLookbackAndMinBars(t *testing.T) {
	cat := catalog.New()
	kernels := kernel.NewRegistry()
	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: 50.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Symbol: "BTC-USD", Timeframe: "1h", Field: "close"}},
	}
	result, err := Analyze(root, cat, kernels)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Lookback, 50)
	buffer := result.Lookback / 10
	if buffer < 20 {
		buffer = 20
	}
	assert.Equal(t, result.Lookback+buffer, result.MinBarsRecommended)
	assert.Contains(t, result.Indicators, "sma")
}
