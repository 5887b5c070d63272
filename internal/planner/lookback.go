package planner

// timeframeOrder ranks known timeframe strings from finest to coarsest, used
// to derive the "finest among inputs" alignment timeframe (section 4.4 step
// 5). Unrecognized strings sort last and never win a comparison against a
// known one.
var timeframeOrder = map[string]int{
	"1s": 0, "1m": 1, "5m": 2, "15m": 3, "30m": 4,
	"1h": 5, "4h": 6, "1d": 7, "1w": 8,
}

func finerTimeframe(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	ra, aok := timeframeOrder[a]
	rb, bok := timeframeOrder[b]
	switch {
	case aok && bok:
		if ra <= rb {
			return a
		}
		return b
	case aok:
		return a
	case bok:
		return b
	default:
		return a
	}
}

// alignmentOf derives a node's alignment from its already-built parent
// nodes: the finest timeframe among them, with "inner" as the join policy
// (section 4.4 step 5). Every node gets "inner"; no call site selects
// "ffill", and no Call param requests it.
func alignmentOf(parentIDs []string, byID map[string]*PlanNode) Alignment {
	tf := ""
	for _, id := range parentIDs {
		if n, ok := byID[id]; ok {
			tf = finerTimeframe(tf, n.Alignment.Timeframe)
		}
	}
	return Alignment{Policy: "inner", Timeframe: tf}
}

// propagateDemand is the second pass of section 4.4 step 4: Lookback (built
// bottom-up during the post-order walk) tells each node how many of its own
// leading output bars are unavailable, but a DataRequirement's min_bars must
// reflect the steepest demand placed on that leaf by ANY consumer anywhere
// in the DAG, not just its immediate parent. We walk nodes in reverse
// topological order (roots toward leaves) carrying down how many ready
// output bars each node owes the nodes above it, translating that into a
// bars-of-child requirement at every edge.
func propagateDemand(order []*PlanNode) map[string]int {
	demand := make(map[string]int, len(order))
	for _, n := range order {
		demand[n.NodeID] = 1 // every node must produce at least one ready bar
	}
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		required := demand[n.NodeID] - 1 + n.OwnWarmup
		if required < 1 {
			required = 1
		}
		for _, pid := range n.Parents {
			if required > demand[pid] {
				demand[pid] = required
			}
		}
	}
	return demand
}
