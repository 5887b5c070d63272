package preview

import (
	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
)

// AnalyzeResult is analyze()'s response (section 4.6).
type AnalyzeResult struct {
	Indicators          []string
	Lookback            int
	MaxPeriod           int
	MinBarsRecommended  int
}

// Analyze implements section 4.6's analyze(): compile the plan and report
// its worst-case lookback and a conservative recommended history depth. The
// safety buffer is 10% of the lookback or 20 bars, whichever is larger.
func Analyze(root ir.Node, cat *catalog.Catalog, kernels *kernel.Registry) (*AnalyzeResult, error) {
	_, plan, err := compile(root, cat, kernels, dataset.Schema{})
	if err != nil {
		return nil, err
	}

	lookback := 0
	maxPeriod := 0
	for _, ro := range plan.RootOutputs {
		if n := findNode(plan, ro.NodeID); n != nil && n.Lookback > lookback {
			lookback = n.Lookback
		}
	}
	for _, n := range plan.Nodes {
		if n.OwnWarmup > maxPeriod {
			maxPeriod = n.OwnWarmup
		}
	}

	buffer := lookback / 10
	if buffer < 20 {
		buffer = 20
	}
	return &AnalyzeResult{
		Indicators:         plan.CapabilityManifest.Indicators,
		Lookback:           lookback,
		MaxPeriod:          maxPeriod,
		MinBarsRecommended: lookback + buffer,
	}, nil
}
