package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/normalize"
)

func build(t *testing.T, root ir.Node) (*Plan, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New()
	normalized, _, err := normalize.Normalize(root, cat)
	require.NoError(t, err)
	require.NoError(t, normalize.Typecheck(normalized, cat))

	plan, err := Build(normalized, cat, kernel.NewRegistry(), dataset.Schema{})
	require.NoError(t, err)
	return plan, cat
}

func TestBuild_SimpleSMA_TopologicalOrder(t *testing.T) {
	root := &ir.Call{
		IndicatorID: "sma",
		Params:      []ir.Param{{Name: "period", Value: 10.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Field: "close"}},
	}
	plan, _ := build(t, root)
	require.Len(t, plan.Nodes, 2) // SourceRef, then sma Call
	assert.Equal(t, ir.KindSourceRef, plan.Nodes[0].Kind)
	assert.Equal(t, ir.KindCall, plan.Nodes[1].Kind)
	assert.Equal(t, plan.RootID, plan.Nodes[1].NodeID)
	require.NotNil(t, plan.Nodes[0].DataReq)
	assert.GreaterOrEqual(t, plan.Nodes[0].DataReq.MinBars, 10)
}

func TestBuild_SharedSubexpressionDeduplicates(t *testing.T) {
	leftInput := &ir.SourceRef{Field: "close"}
	rightInput := &ir.SourceRef{Field: "close"}
	root := &ir.BinaryOp{
		Op: ir.OpSub,
		Lhs: &ir.Call{IndicatorID: "sma", Params: []ir.Param{{Name: "period", Value: 5.0}}, Inputs: []ir.Node{leftInput}},
		Rhs: &ir.Call{IndicatorID: "sma", Params: []ir.Param{{Name: "period", Value: 5.0}}, Inputs: []ir.Node{rightInput}},
	}
	plan, _ := build(t, root)
	// Both sma(close,5) calls and both close SourceRefs collapse to one node
	// each thanks to normalize's CSE pass, so only 3 plan nodes total.
	assert.Len(t, plan.Nodes, 3)
}

func TestBuild_CompositeRSI_ExpandsIntoKernelNodes(t *testing.T) {
	root := &ir.Call{
		IndicatorID: "rsi",
		Params:      []ir.Param{{Name: "period", Value: 14.0}},
		Inputs:      []ir.Node{&ir.SourceRef{Field: "close"}},
	}
	plan, _ := build(t, root)
	assert.Greater(t, len(plan.Nodes), 1)
	var sawKernel bool
	for _, n := range plan.Nodes {
		if n.Kernel != nil {
			sawKernel = true
		}
	}
	assert.True(t, sawKernel)
}

func TestBuild_DedicatedMultiOutput_MemberAccessResolvesToSameNode(t *testing.T) {
	adx := &ir.Call{
		IndicatorID: "adx",
		Params:      []ir.Param{{Name: "period", Value: 14.0}},
		Inputs: []ir.Node{
			&ir.SourceRef{Field: "high"}, &ir.SourceRef{Field: "low"}, &ir.SourceRef{Field: "close"},
		},
	}
	root := &ir.MemberAccess{Child: adx, Name: "plus_di"}
	plan, _ := build(t, root)
	// plus_di resolves to the same PlanNode as the adx Call itself (direct
	// multi-output binding, no synthetic passthrough node).
	found := false
	for _, n := range plan.Nodes {
		if n.NodeID == plan.RootID && n.Kernel != nil && n.Kernel.ID == "adx" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuild_UnknownIndicatorFails(t *testing.T) {
	cat := catalog.New()
	root := &ir.Call{IndicatorID: "nope", Inputs: []ir.Node{&ir.SourceRef{}}}
	normalized, _, err := normalize.Normalize(root, cat)
	assert.Error(t, err)
	assert.Nil(t, normalized)
}

func TestBuild_MismatchedSymbolsFailsAlignment(t *testing.T) {
	root := &ir.BinaryOp{
		Op:  ir.OpSub,
		Lhs: &ir.SourceRef{Symbol: "BTC-USD", Field: "close"},
		Rhs: &ir.SourceRef{Symbol: "ETH-USD", Field: "close"},
	}
	cat := catalog.New()
	normalized, _, err := normalize.Normalize(root, cat)
	require.NoError(t, err)
	require.NoError(t, normalize.Typecheck(normalized, cat))
	_, err = Build(normalized, cat, kernel.NewRegistry(), dataset.Schema{})
	assert.Error(t, err)
}
