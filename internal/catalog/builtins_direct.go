package catalog

// builtinDirect lists every catalog entry that binds straight to one
// kernel.Registry kind with no sub-DAG expansion: the rolling reducers,
// recursive smoothers, cumulative transforms, differenced/transformational
// kernels, and event-transition kernels of section 4.1, plus the stateful
// kernels (psar, swing_high/low, supertrend_band) that already carry their
// own composite state internally.
func builtinDirect() []*IndicatorMeta {
	return []*IndicatorMeta{
		{
			ID: "sma", DisplayName: "Simple Moving Average", Category: "overlay",
			Aliases: []string{"rolling_mean", "ma"}, RuntimeBinding: "mean",
			Params:  []ParamSpec{intSpec("period", 20, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"close"}, LookbackParams: []string{"period"},
				DefaultLookback: 20, WarmupPolicy: WarmupWindow,
			},
		},
		{
			ID: "rolling_sum", DisplayName: "Rolling Sum", Category: "transform", RuntimeBinding: "sum",
			Params: []ParamSpec{intSpec("period", 20, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 20, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "rolling_std", DisplayName: "Rolling Std Dev", Category: "transform", Aliases: []string{"stddev"}, RuntimeBinding: "std",
			Params: []ParamSpec{intSpec("period", 20, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 20, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "rolling_min", DisplayName: "Rolling Min", Category: "transform", RuntimeBinding: "min",
			Params: []ParamSpec{intSpec("period", 20, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 20, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "rolling_max", DisplayName: "Rolling Max", Category: "transform", RuntimeBinding: "max",
			Params: []ParamSpec{intSpec("period", 20, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 20, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "rolling_median", DisplayName: "Rolling Median", Category: "transform", RuntimeBinding: "median",
			Params: []ParamSpec{intSpec("period", 20, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 20, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "rolling_argmax", DisplayName: "Rolling Argmax", Category: "transform", RuntimeBinding: "argmax",
			Params: []ParamSpec{intSpec("period", 20, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 20, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "rolling_argmin", DisplayName: "Rolling Argmin", Category: "transform", RuntimeBinding: "argmin",
			Params: []ParamSpec{intSpec("period", 20, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 20, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "ema", DisplayName: "Exponential Moving Average", Category: "overlay", RuntimeBinding: "ema",
			Params: []ParamSpec{intSpec("period", 14, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 14, WarmupPolicy: WarmupRecursive},
		},
		{
			ID: "rma", DisplayName: "Wilder's Smoothed MA", Category: "overlay", Aliases: []string{"wilder_ma"}, RuntimeBinding: "rma",
			Params: []ParamSpec{intSpec("period", 14, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 14, WarmupPolicy: WarmupRecursive},
		},
		{
			ID: "wma", DisplayName: "Weighted Moving Average", Category: "overlay", RuntimeBinding: "wma",
			Params: []ParamSpec{intSpec("period", 14, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 14, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "hma", DisplayName: "Hull Moving Average", Category: "overlay", RuntimeBinding: "hma",
			Params: []ParamSpec{intSpec("period", 14, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 14, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "cumsum", DisplayName: "Cumulative Sum", Category: "transform", RuntimeBinding: "cumsum",
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, DefaultLookback: 0, WarmupPolicy: WarmupCumulative},
		},
		{
			ID: "obv", DisplayName: "On-Balance Volume", Category: "volume", RuntimeBinding: "obv",
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close", "volume"}, DefaultLookback: 0, WarmupPolicy: WarmupCumulative},
		},
		{
			// Open question (section 9): rolling vs session-anchored VWAP default.
			// Decision (recorded in DESIGN.md): rolling, matching the spec's own
			// hint ("source suggests rolling").
			ID: "vwap", DisplayName: "Volume Weighted Average Price", Category: "overlay", RuntimeBinding: "vwap",
			Params:  []ParamSpec{intSpec("period", 20, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{
				RequiredFields: []string{"close", "volume"}, LookbackParams: []string{"period"},
				DefaultLookback: 20, WarmupPolicy: WarmupWindow,
			},
		},
		{
			ID: "diff", DisplayName: "Difference", Category: "transform", RuntimeBinding: "diff",
			Params: []ParamSpec{intSpec("k", 1, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"k"}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "shift", DisplayName: "Shift", Category: "transform", RuntimeBinding: "shift",
			Params: []ParamSpec{intSpec("k", 1, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"k"}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "roc", DisplayName: "Rate of Change", Category: "momentum", RuntimeBinding: "roc",
			Params: []ParamSpec{intSpec("period", 1, 1)}, Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, LookbackParams: []string{"period"}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "true_range", DisplayName: "True Range", Category: "volatility", RuntimeBinding: "true_range",
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"high", "low", "close"}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "positive_values", DisplayName: "Positive Values", Category: "transform", RuntimeBinding: "positive_values",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, DefaultLookback: 0, WarmupPolicy: WarmupNone},
		},
		{
			ID: "negative_values", DisplayName: "Negative Values", Category: "transform", RuntimeBinding: "negative_values",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"close"}, DefaultLookback: 0, WarmupPolicy: WarmupNone},
		},
		{
			ID: "crossup", DisplayName: "Crosses Up", Category: "event", RuntimeBinding: "crossup",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{RequiredFields: []string{}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "crossdown", DisplayName: "Crosses Down", Category: "event", RuntimeBinding: "crossdown",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{RequiredFields: []string{}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "rising", DisplayName: "Rising", Category: "event", RuntimeBinding: "rising",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{RequiredFields: []string{"close"}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "falling", DisplayName: "Falling", Category: "event", RuntimeBinding: "falling",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{RequiredFields: []string{"close"}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "in_channel", DisplayName: "In Channel", Category: "event", RuntimeBinding: "in_channel",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{RequiredFields: []string{}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "enter", DisplayName: "Enter", Category: "event", RuntimeBinding: "enter",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{RequiredFields: []string{}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "exit", DisplayName: "Exit", Category: "event", RuntimeBinding: "exit",
			Outputs:   []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{RequiredFields: []string{}, DefaultLookback: 1, WarmupPolicy: WarmupWindow},
		},
		{
			ID: "swing_high", DisplayName: "Swing High", Category: "pattern", RuntimeBinding: "swing_high",
			Params:  []ParamSpec{intSpec("strength", 5, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low"}, LookbackParams: []string{"strength"},
				DefaultLookback: 11, WarmupPolicy: WarmupWindow,
			},
		},
		{
			ID: "swing_low", DisplayName: "Swing Low", Category: "pattern", RuntimeBinding: "swing_low",
			Params:  []ParamSpec{intSpec("strength", 5, 1)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputSignal}},
			Semantics: Semantics{
				RequiredFields: []string{"high", "low"}, LookbackParams: []string{"strength"},
				DefaultLookback: 11, WarmupPolicy: WarmupWindow,
			},
		},
		{
			ID: "psar", DisplayName: "Parabolic SAR", Category: "overlay", RuntimeBinding: "psar",
			Params:  []ParamSpec{numSpec("af_step", 0.02), numSpec("af_max", 0.2)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"high", "low"}, DefaultLookback: 2, WarmupPolicy: WarmupWindow},
		},
		{
			// Internal-only primitive: the user-facing "supertrend" entry
			// (builtins_composite.go) expands into this one, wiring the
			// true_range+rma(atr) upstream per statefuls.go's doc comment.
			ID: "supertrend_band", DisplayName: "Supertrend Band (internal)", Category: "overlay", RuntimeBinding: "supertrend",
			Params:  []ParamSpec{numSpec("multiplier", 3.0)},
			Outputs: []OutputSpec{{Name: "value", Kind: OutputLine}},
			Semantics: Semantics{RequiredFields: []string{"high", "low", "close"}, DefaultLookback: 1, WarmupPolicy: WarmupRecursive},
		},
	}
}
