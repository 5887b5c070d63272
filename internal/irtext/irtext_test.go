package irtext_test

import (
	"testing"

	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/irtext"
	"github.com/smilemakc/ta-engine/pkg/irdoc"

	"github.com/stretchr/testify/require"
)

func TestLoadCompilesYAMLExpressionIntoIRNode(t *testing.T) {
	data := []byte(`
name: sma-cross
version: "1"
description: fast/slow SMA crossover
expression:
  type: Call
  indicator: crossup
  inputs:
    - type: Call
      indicator: sma
      params:
        period: 5
      inputs:
        - type: SourceRef
          symbol: BTCUSDT
          timeframe: 1h
          source: ohlcv
          field: close
    - type: Call
      indicator: sma
      params:
        period: 20
      inputs:
        - type: SourceRef
          symbol: BTCUSDT
          timeframe: 1h
          source: ohlcv
          field: close
`)
	doc, root, err := irtext.Load(data)
	require.NoError(t, err)
	require.Equal(t, "sma-cross", doc.Name)

	call, ok := root.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, "crossup", call.IndicatorID)
	require.Len(t, call.Inputs, 2)

	fast, ok := call.Inputs[0].(*ir.Call)
	require.True(t, ok)
	require.Equal(t, "sma", fast.IndicatorID)
	period, ok := fast.Param("period")
	require.True(t, ok)
	require.EqualValues(t, 5, period)
}

func TestDumpDecompileRoundTrip(t *testing.T) {
	root := &ir.BinaryOp{
		Op: ir.OpAdd,
		Lhs: &ir.SourceRef{Symbol: "ETHUSDT", Timeframe: "1h", Source: "ohlcv", Field: "close"},
		Rhs: ir.NewLiteralNumber(1.5),
	}
	out, err := irtext.Dump("plus-one", "1", "shifted price", root)
	require.NoError(t, err)
	require.Contains(t, string(out), "plus-one")

	doc, recompiled, err := irtext.Load(out)
	require.NoError(t, err)
	require.Equal(t, "plus-one", doc.Name)

	bin, ok := recompiled.(*ir.BinaryOp)
	require.True(t, ok)
	require.Equal(t, ir.OpAdd, bin.Op)
	lit, ok := bin.Rhs.(*ir.Literal)
	require.True(t, ok)
	require.InDelta(t, 1.5, lit.Value.(float64), 1e-9)
}

func TestBuilderFluentConstruction(t *testing.T) {
	doc := irdoc.NewDocumentBuilder().
		Name("rsi-oversold").
		Version("1").
		Description("RSI below 30").
		Expression(irdoc.Bin("<",
			irdoc.Call("rsi", map[string]any{"period": 14},
				irdoc.Src("BTCUSDT", "", "1h", "ohlcv", "close")),
			irdoc.Lit(30.0, "number"),
		)).
		Build()

	root, err := irtext.Compile(doc.Expression)
	require.NoError(t, err)
	bin, ok := root.(*ir.BinaryOp)
	require.True(t, ok)
	require.Equal(t, ir.OpLt, bin.Op)
}
