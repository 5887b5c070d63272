package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/ir"
)

func TestNormalize_FillsSourceDefaults(t *testing.T) {
	cat := catalog.New()
	call := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Value: 5.0}},
		Inputs:      []ir.Node{&ir.SourceRef{}},
	}
	out, _, err := Normalize(call, cat)
	require.NoError(t, err)

	sma, ok := out.(*ir.Call)
	require.True(t, ok)
	require.Len(t, sma.Inputs, 1)
	ref, ok := sma.Inputs[0].(*ir.SourceRef)
	require.True(t, ok)
	assert.Equal(t, "ohlcv", ref.Source)
	assert.Equal(t, "close", ref.Field)
}

func TestNormalize_ResolvesAliasAndPositionalParam(t *testing.T) {
	cat := catalog.New()
	call := &ir.Call{
		IndicatorID: "rolling_mean", // alias for sma
		Params:      []ir.Param{{Value: 20.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Field: "close"}},
	}
	out, _, err := Normalize(call, cat)
	require.NoError(t, err)
	sma := out.(*ir.Call)
	assert.Equal(t, "sma", sma.IndicatorID)
	v, ok := sma.Param("period")
	require.True(t, ok)
	assert.EqualValues(t, 20, v)
}

func TestNormalize_ConstantFoldsArithmetic(t *testing.T) {
	cat := catalog.New()
	expr := &ir.BinaryOp{
		Op:  ir.OpAdd,
		Lhs: ir.NewLiteralNumber(2),
		Rhs: ir.NewLiteralNumber(3),
	}
	out, _, err := Normalize(expr, cat)
	require.NoError(t, err)
	lit, ok := out.(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, 5.0, lit.Value)
}

func TestNormalize_CSE_SharesIdenticalSubtrees(t *testing.T) {
	cat := catalog.New()
	left := &ir.Call{IndicatorID: "sma", Params: []ir.Param{{Name: "period", Value: 10.0}},
		Inputs: []ir.Node{&ir.SourceRef{Field: "close"}}}
	right := &ir.Call{IndicatorID: "sma", Params: []ir.Param{{Name: "period", Value: 10.0}},
		Inputs: []ir.Node{&ir.SourceRef{Field: "close"}}}
	expr := &ir.BinaryOp{Op: ir.OpSub, Lhs: left, Rhs: right}

	out, _, err := Normalize(expr, cat)
	require.NoError(t, err)
	bin := out.(*ir.BinaryOp)
	assert.Same(t, bin.Lhs, bin.Rhs)
}

func TestNormalize_UnknownIndicatorErrors(t *testing.T) {
	cat := catalog.New()
	call := &ir.Call{IndicatorID: "not_a_real_indicator", Inputs: []ir.Node{&ir.SourceRef{}}}
	_, _, err := Normalize(call, cat)
	assert.Error(t, err)
}

func TestTypecheck_BinaryArithmeticRequiresNumeric(t *testing.T) {
	cat := catalog.New()
	call := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: 5.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Source: "ohlcv", Field: "close"}},
	}
	normalized, _, err := Normalize(call, cat)
	require.NoError(t, err)

	expr := &ir.BinaryOp{Op: ir.OpAdd, Lhs: normalized, Rhs: ir.NewLiteralNumber(1)}
	err = Typecheck(expr, cat)
	require.NoError(t, err)
	assert.True(t, expr.Type().IsSeries())
}

func TestTypecheck_MemberAccessRequiresStructured(t *testing.T) {
	cat := catalog.New()
	ref := &ir.SourceRef{Source: "ohlcv", Field: "close"}
	ref.SetType(ir.SeriesOf(ir.TypeSeriesNumber))
	access := &ir.MemberAccess{Child: ref, Name: "plus_di"}
	err := Typecheck(access, cat)
	assert.Error(t, err)
}
