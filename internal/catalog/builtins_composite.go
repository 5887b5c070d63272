package catalog

import "github.com/smilemakc/ta-engine/internal/ir"

// builtinComposite lists every catalog entry whose evaluation is not a
// single kernel.Registry binding: the pure-arithmetic composites that
// Expand into a sub-DAG of the primitives in builtins_direct.go (section
// 4.1's "composite primitives may be expressed as a sub-DAG" note,
// following hma's own internal precedent), and the handful of indicators
// backed by a dedicated native kernel (composite.go) because their math
// needs a conditional or absolute-value step the IR's BinaryOp/UnaryOp
// algebra cannot express.
//
// For the direct-binding multi-output entries (adx, vortex) with no Expand
// function, the convention is: the first declared Output always reads
// Emit.Value, and every other declared Output reads Emit.Extra by name.
func builtinComposite() []*IndicatorMeta {
	return append(pureComposites(), dedicatedComposites()...)
}

func pureComposites() []*IndicatorMeta {
	return []*IndicatorMeta{
		{
			ID: "rsi", DisplayName: "Relative Strength Index", Category: "momentum",
			Params:  []ParamSpec{intSpec("period", 14, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"close"}, LookbackParams: []string{"period"},
				DefaultLookback: 14, WarmupPolicy: WarmupRecursive,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				close := inputs[0]
				period := paramInt(params, "period", 14)
				d := call("diff", map[string]any{"k": 1}, close)
				pos := call("positive_values", nil, d)
				neg := call("negative_values", nil, d)
				avgGain := call("rma", map[string]any{"period": period}, pos)
				avgLoss := call("rma", map[string]any{"period": period}, neg)
				rs := div(avgGain, avgLoss)
				value := sub(lit(100), div(lit(100), add(lit(1), rs)))
				return map[string]ir.Node{"value": value}, nil
			},
		},
		{
			ID: "macd", DisplayName: "MACD", Category: "momentum",
			Params: []ParamSpec{intSpec("fast", 12, 1), intSpec("slow", 26, 1), intSpec("signal", 9, 1)},
			Outputs: []OutputSpec{
				{Name: "macd", Kind: OutputLine}, {Name: "signal", Kind: OutputLine}, {Name: "histogram", Kind: OutputHistogram},
			},
			Semantics: Semantics{
				RequiredFields: []string{"close"}, LookbackParams: []string{"slow", "signal"},
				DefaultLookback: 26, WarmupPolicy: WarmupRecursive,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				close := inputs[0]
				fast := paramInt(params, "fast", 12)
				slow := paramInt(params, "slow", 26)
				signal := paramInt(params, "signal", 9)
				emaFast := call("ema", map[string]any{"period": fast}, close)
				emaSlow := call("ema", map[string]any{"period": slow}, close)
				macdLine := sub(emaFast, emaSlow)
				signalLine := call("ema", map[string]any{"period": signal}, macdLine)
				hist := sub(macdLine, signalLine)
				return map[string]ir.Node{"macd": macdLine, "signal": signalLine, "histogram": hist}, nil
			},
		},
		{
			ID: "bbands", DisplayName: "Bollinger Bands", Category: "overlay", Aliases: []string{"bollinger"},
			Params: []ParamSpec{intSpec("period", 20, 1), numSpec("mult", 2.0)},
			Outputs: []OutputSpec{
				{Name: "basis", Kind: OutputLine}, {Name: "upper", Kind: OutputBand}, {Name: "lower", Kind: OutputBand},
			},
			Semantics: Semantics{
				RequiredFields: []string{"close"}, LookbackParams: []string{"period"},
				DefaultLookback: 20, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				close := inputs[0]
				period := paramInt(params, "period", 20)
				mult := paramFloat(params, "mult", 2.0)
				basis := call("sma", map[string]any{"period": period}, close)
				std := call("rolling_std", map[string]any{"period": period}, close)
				upper := add(basis, mul(lit(mult), std))
				lower := sub(basis, mul(lit(mult), std))
				return map[string]ir.Node{"basis": basis, "upper": upper, "lower": lower}, nil
			},
		},
		{
			ID: "stochastic", DisplayName: "Stochastic Oscillator", Category: "momentum",
			Params:  []ParamSpec{intSpec("k_period", 14, 1), intSpec("d_period", 3, 1)},
			Outputs: []OutputSpec{{Name: "k", Kind: OutputLine}, {Name: "d", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"k_period", "d_period"},
				DefaultLookback: 14, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close := inputs[0], inputs[1], inputs[2]
				kPeriod := paramInt(params, "k_period", 14)
				dPeriod := paramInt(params, "d_period", 3)
				hh := call("rolling_max", map[string]any{"period": kPeriod}, high)
				ll := call("rolling_min", map[string]any{"period": kPeriod}, low)
				k := mul(lit(100), div(sub(close, ll), sub(hh, ll)))
				d := call("sma", map[string]any{"period": dPeriod}, k)
				return map[string]ir.Node{"k": k, "d": d}, nil
			},
		},
		{
			ID: "atr", DisplayName: "Average True Range", Category: "volatility",
			Params:  []ParamSpec{intSpec("period", 14, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"period"},
				DefaultLookback: 14, WarmupPolicy: WarmupRecursive,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close := inputs[0], inputs[1], inputs[2]
				period := paramInt(params, "period", 14)
				tr := call("true_range", nil, high, low, close)
				atr := call("rma", map[string]any{"period": period}, tr)
				return map[string]ir.Node{"value": atr}, nil
			},
		},
		{
			ID: "donchian", DisplayName: "Donchian Channel", Category: "overlay",
			Params:  []ParamSpec{intSpec("period", 20, 1)},
			Outputs: []OutputSpec{{Name: "upper", Kind: OutputBand}, {Name: "lower", Kind: OutputBand}, {Name: "mid", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low"}, LookbackParams: []string{"period"},
				DefaultLookback: 20, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low := inputs[0], inputs[1]
				period := paramInt(params, "period", 20)
				upper := call("rolling_max", map[string]any{"period": period}, high)
				lower := call("rolling_min", map[string]any{"period": period}, low)
				mid := div(add(upper, lower), lit(2))
				return map[string]ir.Node{"upper": upper, "lower": lower, "mid": mid}, nil
			},
		},
		{
			ID: "keltner", DisplayName: "Keltner Channel", Category: "overlay",
			Params: []ParamSpec{intSpec("period", 20, 1), numSpec("mult", 2.0)},
			Outputs: []OutputSpec{
				{Name: "basis", Kind: OutputLine}, {Name: "upper", Kind: OutputBand}, {Name: "lower", Kind: OutputBand},
			},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"period"},
				DefaultLookback: 20, WarmupPolicy: WarmupRecursive,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close := inputs[0], inputs[1], inputs[2]
				period := paramInt(params, "period", 20)
				mult := paramFloat(params, "mult", 2.0)
				basis := call("ema", map[string]any{"period": period}, close)
				tr := call("true_range", nil, high, low, close)
				atr := call("rma", map[string]any{"period": period}, tr)
				upper := add(basis, mul(lit(mult), atr))
				lower := sub(basis, mul(lit(mult), atr))
				return map[string]ir.Node{"basis": basis, "upper": upper, "lower": lower}, nil
			},
		},
		{
			ID: "williams_r", DisplayName: "Williams %R", Category: "momentum", Aliases: []string{"willr"},
			Params:  []ParamSpec{intSpec("period", 14, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"period"},
				DefaultLookback: 14, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close := inputs[0], inputs[1], inputs[2]
				period := paramInt(params, "period", 14)
				hh := call("rolling_max", map[string]any{"period": period}, high)
				ll := call("rolling_min", map[string]any{"period": period}, low)
				value := mul(lit(-100), div(sub(hh, close), sub(hh, ll)))
				return map[string]ir.Node{"value": value}, nil
			},
		},
		{
			ID: "coppock", DisplayName: "Coppock Curve", Category: "momentum",
			Params:  []ParamSpec{intSpec("roc1", 14, 1), intSpec("roc2", 11, 1), intSpec("wma_period", 10, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"close"}, LookbackParams: []string{"roc1", "wma_period"},
				DefaultLookback: 24, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				close := inputs[0]
				roc1 := paramInt(params, "roc1", 14)
				roc2 := paramInt(params, "roc2", 11)
				wmaPeriod := paramInt(params, "wma_period", 10)
				r1 := call("roc", map[string]any{"period": roc1}, close)
				r2 := call("roc", map[string]any{"period": roc2}, close)
				sum := add(r1, r2)
				curve := call("wma", map[string]any{"period": wmaPeriod}, sum)
				return map[string]ir.Node{"value": curve}, nil
			},
		},
		{
			ID: "elder_ray", DisplayName: "Elder Ray", Category: "momentum",
			Params:  []ParamSpec{intSpec("period", 13, 1)},
			Outputs: []OutputSpec{{Name: "bull_power", Kind: OutputHistogram}, {Name: "bear_power", Kind: OutputHistogram}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"period"},
				DefaultLookback: 13, WarmupPolicy: WarmupRecursive,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close := inputs[0], inputs[1], inputs[2]
				period := paramInt(params, "period", 13)
				ema := call("ema", map[string]any{"period": period}, close)
				bull := sub(high, ema)
				bear := sub(low, ema)
				return map[string]ir.Node{"bull_power": bull, "bear_power": bear}, nil
			},
		},
		{
			ID: "ao", DisplayName: "Awesome Oscillator", Category: "momentum",
			Params:  []ParamSpec{intSpec("fast", 5, 1), intSpec("slow", 34, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputHistogram}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low"}, LookbackParams: []string{"slow"},
				DefaultLookback: 34, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low := inputs[0], inputs[1]
				fast := paramInt(params, "fast", 5)
				slow := paramInt(params, "slow", 34)
				median := div(add(high, low), lit(2))
				fastSma := call("sma", map[string]any{"period": fast}, median)
				slowSma := call("sma", map[string]any{"period": slow}, median)
				value := sub(fastSma, slowSma)
				return map[string]ir.Node{"value": value}, nil
			},
		},
		{
			ID: "cmf", DisplayName: "Chaikin Money Flow", Category: "volume",
			Params:  []ParamSpec{intSpec("period", 20, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close", "volume"}, LookbackParams: []string{"period"},
				DefaultLookback: 20, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close, volume := inputs[0], inputs[1], inputs[2], inputs[3]
				period := paramInt(params, "period", 20)
				mfm := div(sub(sub(close, low), sub(high, close)), sub(high, low))
				mfv := mul(mfm, volume)
				sumMFV := call("rolling_sum", map[string]any{"period": period}, mfv)
				sumVol := call("rolling_sum", map[string]any{"period": period}, volume)
				value := div(sumMFV, sumVol)
				return map[string]ir.Node{"value": value}, nil
			},
		},
		{
			ID: "ichimoku", DisplayName: "Ichimoku Cloud", Category: "overlay",
			Params: []ParamSpec{
				intSpec("conversion_period", 9, 1), intSpec("base_period", 26, 1),
				intSpec("span_b_period", 52, 1), intSpec("displacement", 26, 1),
			},
			Outputs: []OutputSpec{
				{Name: "conversion_line", Kind: OutputLine}, {Name: "base_line", Kind: OutputLine},
				{Name: "span_a", Kind: OutputBand}, {Name: "span_b", Kind: OutputBand}, {Name: "chikou_span", Kind: OutputLine},
			},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"span_b_period", "displacement"},
				DefaultLookback: 78, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close := inputs[0], inputs[1], inputs[2]
				conv := paramInt(params, "conversion_period", 9)
				base := paramInt(params, "base_period", 26)
				spanBPeriod := paramInt(params, "span_b_period", 52)
				displacement := paramInt(params, "displacement", 26)

				convLine := div(add(
					call("rolling_max", map[string]any{"period": conv}, high),
					call("rolling_min", map[string]any{"period": conv}, low),
				), lit(2))
				baseLine := div(add(
					call("rolling_max", map[string]any{"period": base}, high),
					call("rolling_min", map[string]any{"period": base}, low),
				), lit(2))
				spanA := div(add(convLine, baseLine), lit(2))
				spanB := div(add(
					call("rolling_max", map[string]any{"period": spanBPeriod}, high),
					call("rolling_min", map[string]any{"period": spanBPeriod}, low),
				), lit(2))
				// Displacement projects span_a/span_b forward and chikou_span
				// backward on the chart. TimeShift's delta is positive for a
				// lag (read an earlier bar) and negative for a look-ahead
				// (read a later bar), so the spans are lagged and chikou_span
				// looks ahead.
				return map[string]ir.Node{
					"conversion_line": convLine,
					"base_line":       baseLine,
					"span_a":          shiftBars(spanA, int64(displacement)),
					"span_b":          shiftBars(spanB, int64(displacement)),
					"chikou_span":     shiftBars(close, -int64(displacement)),
				}, nil
			},
		},
		{
			ID: "swing_points", DisplayName: "Swing Points", Category: "pattern",
			Params:  []ParamSpec{intSpec("strength", 5, 1)},
			Outputs: []OutputSpec{{Name: "high_pivot", Kind: OutputSignal}, {Name: "low_pivot", Kind: OutputSignal}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low"}, LookbackParams: []string{"strength"},
				DefaultLookback: 11, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low := inputs[0], inputs[1]
				strength := paramInt(params, "strength", 5)
				highPivot := call("swing_high", map[string]any{"strength": strength}, high, low)
				lowPivot := call("swing_low", map[string]any{"strength": strength}, high, low)
				return map[string]ir.Node{"high_pivot": highPivot, "low_pivot": lowPivot}, nil
			},
		},
		{
			ID: "supertrend", DisplayName: "Supertrend", Category: "overlay",
			Params:  []ParamSpec{intSpec("period", 10, 1), numSpec("multiplier", 3.0)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"period"},
				DefaultLookback: 10, WarmupPolicy: WarmupRecursive,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close := inputs[0], inputs[1], inputs[2]
				period := paramInt(params, "period", 10)
				multiplier := paramFloat(params, "multiplier", 3.0)
				tr := call("true_range", nil, high, low, close)
				atr := call("rma", map[string]any{"period": period}, tr)
				band := call("supertrend_band", map[string]any{"multiplier": multiplier}, high, low, close, atr)
				return map[string]ir.Node{"value": band}, nil
			},
		},
		{
			ID: "klinger", DisplayName: "Klinger Volume Oscillator", Category: "volume",
			Params:  []ParamSpec{intSpec("fast", 34, 1), intSpec("slow", 55, 1), intSpec("signal", 9, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}, {Name: "signal", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close", "volume"}, LookbackParams: []string{"slow", "signal"},
				DefaultLookback: 55, WarmupPolicy: WarmupRecursive,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low, close, volume := inputs[0], inputs[1], inputs[2], inputs[3]
				fast := paramInt(params, "fast", 34)
				slow := paramInt(params, "slow", 55)
				signal := paramInt(params, "signal", 9)
				kvo := call("klinger_kvo", map[string]any{"fast": fast, "slow": slow}, high, low, close, volume)
				signalLine := call("ema", map[string]any{"period": signal}, kvo)
				return map[string]ir.Node{"value": kvo, "signal": signalLine}, nil
			},
		},
		{
			ID: "fisher", DisplayName: "Fisher Transform", Category: "momentum",
			Params:  []ParamSpec{intSpec("period", 10, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}, {Name: "trigger", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low"}, LookbackParams: []string{"period"},
				DefaultLookback: 10, WarmupPolicy: WarmupWindow,
			},
			Expand: func(inputs []ir.Node, params map[string]any) (map[string]ir.Node, error) {
				high, low := inputs[0], inputs[1]
				period := paramInt(params, "period", 10)
				median := div(add(high, low), lit(2))
				raw := call("fisher", map[string]any{"period": period}, median)
				trigger := shiftBars(raw, 1)
				return map[string]ir.Node{"value": raw, "trigger": trigger}, nil
			},
		},
	}
}

// dedicatedComposites lists the indicators backed by a native kernel from
// composite.go: adx/vortex use Emit.Extra for their secondary outputs (no
// Expand -- see the file doc comment above), cci/mfi are single-output
// native kernels with no secondary output at all.
func dedicatedComposites() []*IndicatorMeta {
	return []*IndicatorMeta{
		{
			ID: "adx", DisplayName: "Average Directional Index", Category: "trend", RuntimeBinding: "adx",
			Params: []ParamSpec{intSpec("period", 14, 1)},
			Outputs: []OutputSpec{
				{Name: "value", Kind: OutputLine}, {Name: "plus_di", Kind: OutputLine}, {Name: "minus_di", Kind: OutputLine},
			},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"period"},
				DefaultLookback: 28, WarmupPolicy: WarmupRecursive,
			},
		},
		{
			ID: "vortex", DisplayName: "Vortex Indicator", Category: "trend", RuntimeBinding: "vortex",
			Params:  []ParamSpec{intSpec("period", 14, 1)},
			Outputs: []OutputSpec{{Name: "vi_plus", Kind: OutputLine}, {Name: "vi_minus", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"period"},
				DefaultLookback: 15, WarmupPolicy: WarmupWindow,
			},
		},
		{
			ID: "cci", DisplayName: "Commodity Channel Index", Category: "momentum", RuntimeBinding: "cci",
			Params:  []ParamSpec{intSpec("period", 20, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close"}, LookbackParams: []string{"period"},
				DefaultLookback: 20, WarmupPolicy: WarmupWindow,
			},
		},
		{
			ID: "mfi", DisplayName: "Money Flow Index", Category: "volume", RuntimeBinding: "mfi",
			Params:  []ParamSpec{intSpec("period", 14, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low", "close", "volume"}, LookbackParams: []string{"period"},
				DefaultLookback: 15, WarmupPolicy: WarmupWindow,
			},
		},
	}
}

func builtinIndicators() []*IndicatorMeta {
	out := builtinDirect()
	out = append(out, builtinComposite()...)
	return out
}
