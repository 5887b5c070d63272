package kernel

import (
	"encoding/json"
	"math"
	"sort"
)

// rollingReducer is the reduction function applied over the currently
// available samples in a window. It receives the values in chronological
// order (oldest first).
type rollingReducer func(values []float64) float64

type rollingKind string

const (
	rollingSum    rollingKind = "sum"
	rollingMean   rollingKind = "mean"
	rollingStd    rollingKind = "std"
	rollingMin    rollingKind = "min"
	rollingMax    rollingKind = "max"
	rollingArgmax rollingKind = "argmax"
	rollingArgmin rollingKind = "argmin"
	rollingMedian rollingKind = "median"
)

type rollingSlot struct {
	Value     float64
	Available bool
}

// rollingState implements the rolling-window family of section 4.1: sum,
// mean, std, min, max, argmax, argmin, median. An input with
// available=false is treated as missing: it occupies a slot in the window
// but is excluded from the reduction, so the effective window length is the
// count of available samples among the N most-recent inputs.
type rollingState struct {
	kind           rollingKind
	n              int
	buf            []rollingSlot
	head           int
	filled         int // number of ticks seen, capped at n
	cumulativeSeen int // cumulative count of available inputs ever fed
}

func newRollingState(kind rollingKind, n int) *rollingState {
	return &rollingState{kind: kind, n: n, buf: make([]rollingSlot, n)}
}

func (s *rollingState) Step(u Update) Emit {
	v := u.Inputs[0]
	s.buf[s.head] = rollingSlot{Value: v.Num, Available: v.Available}
	s.head = (s.head + 1) % s.n
	if s.filled < s.n {
		s.filled++
	}
	if v.Available {
		s.cumulativeSeen++
	}

	available := s.cumulativeSeen >= s.n
	if !available {
		return unavailableEmit(false)
	}

	values := s.windowValues()
	if len(values) == 0 {
		return unavailableEmit(false)
	}
	return Emit{Value: NumValue(reduce(s.kind, values)), Available: true}
}

// windowValues returns the available samples in the current logical window,
// oldest first.
func (s *rollingState) windowValues() []float64 {
	out := make([]float64, 0, s.filled)
	start := s.head - s.filled
	for i := 0; i < s.filled; i++ {
		idx := ((start+i)%s.n + s.n) % s.n
		if s.buf[idx].Available {
			out = append(out, s.buf[idx].Value)
		}
	}
	return out
}

func reduce(kind rollingKind, values []float64) float64 {
	switch kind {
	case rollingSum:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	case rollingMean:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case rollingStd:
		return stddev(values)
	case rollingMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case rollingMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case rollingArgmax:
		bestI, best := 0, values[0]
		for i, v := range values {
			if v > best {
				best, bestI = v, i
			}
		}
		return float64(len(values) - 1 - bestI)
	case rollingArgmin:
		bestI, best := 0, values[0]
		for i, v := range values {
			if v < best {
				best, bestI = v, i
			}
		}
		return float64(len(values) - 1 - bestI)
	case rollingMedian:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	default:
		return math.NaN()
	}
}

// stddev computes the population standard deviation via Welford's online
// algorithm (section 9: "Welford for variance" for numerical stability).
func stddev(values []float64) float64 {
	var mean, m2 float64
	var count int
	for _, v := range values {
		count++
		delta := v - mean
		mean += delta / float64(count)
		delta2 := v - mean
		m2 += delta * delta2
	}
	if count == 0 {
		return math.NaN()
	}
	return math.Sqrt(m2 / float64(count))
}

func (s *rollingState) WarmupHint() WarmupHint {
	return WarmupHint{Kind: WarmupWindow, Length: s.n}
}

type rollingSnapshot struct {
	Kind   rollingKind
	N      int
	Buf    []rollingSlot
	Head   int
	Filled int
	Seen   int
}

func (s *rollingState) Snapshot() ([]byte, error) {
	return json.Marshal(rollingSnapshot{
		Kind: s.kind, N: s.n, Buf: s.buf, Head: s.head, Filled: s.filled, Seen: s.cumulativeSeen,
	})
}

func restoreRolling(payload []byte) (State, error) {
	var snap rollingSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &rollingState{
		kind: snap.Kind, n: snap.N, buf: snap.Buf, head: snap.Head,
		filled: snap.Filled, cumulativeSeen: snap.Seen,
	}, nil
}

func registerRollingKernels(r *Registry) {
	kinds := []rollingKind{rollingSum, rollingMean, rollingStd, rollingMin, rollingMax, rollingArgmax, rollingArgmin, rollingMedian}
	for _, k := range kinds {
		k := k
		r.register(Spec{
			Kind: string(k),
			New: func(params map[string]any) (State, error) {
				n, err := intParam(params, "period", 14)
				if err != nil {
					return nil, err
				}
				if n < 1 {
					n = 1
				}
				return newRollingState(k, n), nil
			},
			Restore: restoreRolling,
		})
	}
}
