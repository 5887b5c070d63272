package kernel

import (
	"encoding/json"
	"math"
)

// delayState backs both diff(k) and shift(k): it keeps the last k+1 inputs
// and either returns the delayed raw value (shift) or the delta against it
// (diff).
type delayState struct {
	k         int
	isDiff    bool
	buf       []Value
	head      int
	filled    int
	available bool
}

func newDelayState(k int, isDiff bool) *delayState {
	return &delayState{k: k, isDiff: isDiff, buf: make([]Value, k+1)}
}

func (s *delayState) Step(u Update) Emit {
	v := u.Inputs[0]
	s.buf[s.head] = v
	delayedIdx := (s.head - s.k + len(s.buf)) % len(s.buf)
	s.head = (s.head + 1) % len(s.buf)
	if s.filled < len(s.buf) {
		s.filled++
	}
	if s.filled < len(s.buf) {
		return unavailableEmit(false)
	}
	delayed := s.buf[delayedIdx]
	if !v.Available || !delayed.Available {
		return unavailableEmit(false)
	}
	if s.isDiff {
		return Emit{Value: NumValue(v.Num - delayed.Num), Available: true}
	}
	return Emit{Value: NumValue(delayed.Num), Available: true}
}

func (s *delayState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: s.k + 1} }

type delaySnapshot struct {
	K      int
	IsDiff bool
	Buf    []Value
	Head   int
	Filled int
}

func (s *delayState) Snapshot() ([]byte, error) {
	return json.Marshal(delaySnapshot{K: s.k, IsDiff: s.isDiff, Buf: s.buf, Head: s.head, Filled: s.filled})
}

func restoreDelay(payload []byte) (State, error) {
	var snap delaySnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &delayState{k: snap.K, isDiff: snap.IsDiff, buf: snap.Buf, head: snap.Head, filled: snap.Filled}, nil
}

// rocState is diff expressed as a percentage of the base sample, so it needs
// its own division-by-zero handling independent of delayState.
type rocState struct {
	n      int
	buf    []Value
	head   int
	filled int
}

func newROCState(n int) *rocState { return &rocState{n: n, buf: make([]Value, n+1)} }

func (s *rocState) Step(u Update) Emit {
	v := u.Inputs[0]
	s.buf[s.head] = v
	baseIdx := (s.head - s.n + len(s.buf)) % len(s.buf)
	s.head = (s.head + 1) % len(s.buf)
	if s.filled < len(s.buf) {
		s.filled++
	}
	if s.filled < len(s.buf) {
		return unavailableEmit(false)
	}
	base := s.buf[baseIdx]
	if !v.Available || !base.Available || base.Num == 0 {
		return unavailableEmit(false)
	}
	return Emit{Value: NumValue((v.Num - base.Num) / base.Num * 100), Available: true}
}

func (s *rocState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: s.n + 1} }

type rocSnapshot struct {
	N      int
	Buf    []Value
	Head   int
	Filled int
}

func (s *rocState) Snapshot() ([]byte, error) {
	return json.Marshal(rocSnapshot{N: s.n, Buf: s.buf, Head: s.head, Filled: s.filled})
}

func restoreROC(payload []byte) (State, error) {
	var snap rocSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &rocState{n: snap.N, buf: snap.Buf, head: snap.Head, filled: snap.Filled}, nil
}

// trueRangeState implements Wilder's true range. Inputs are [high, low,
// close]. On the first tick there is no previous close, so TR is simply
// high-low; availability is immediate (warmup policy "none").
type trueRangeState struct {
	hasPrev   bool
	prevClose float64
}

func (s *trueRangeState) Step(u Update) Emit {
	high, low, close := u.Inputs[0], u.Inputs[1], u.Inputs[2]
	if !high.Available || !low.Available || !close.Available {
		return unavailableEmit(false)
	}
	var tr float64
	if !s.hasPrev {
		tr = high.Num - low.Num
	} else {
		tr = math.Max(high.Num-low.Num, math.Max(math.Abs(high.Num-s.prevClose), math.Abs(low.Num-s.prevClose)))
	}
	s.hasPrev = true
	s.prevClose = close.Num
	return Emit{Value: NumValue(tr), Available: true}
}

func (s *trueRangeState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupNone, Length: 0} }

type trueRangeSnapshot struct {
	HasPrev   bool
	PrevClose float64
}

func (s *trueRangeState) Snapshot() ([]byte, error) {
	return json.Marshal(trueRangeSnapshot{HasPrev: s.hasPrev, PrevClose: s.prevClose})
}

func restoreTrueRange(payload []byte) (State, error) {
	var snap trueRangeSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &trueRangeState{hasPrev: snap.HasPrev, prevClose: snap.PrevClose}, nil
}

// signState implements positive_values/negative_values: stateless
// rectifiers commonly used to split a diff series into gain/loss legs (RSI,
// MFI, vortex). positive_values emits max(x,0); negative_values emits
// max(-x,0), i.e. the magnitude of the negative leg.
type signState struct {
	positive bool
}

func (s *signState) Step(u Update) Emit {
	v := u.Inputs[0]
	if !v.Available {
		return unavailableEmit(false)
	}
	if s.positive {
		return Emit{Value: NumValue(math.Max(v.Num, 0)), Available: true}
	}
	return Emit{Value: NumValue(math.Max(-v.Num, 0)), Available: true}
}

func (s *signState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupNone, Length: 0} }

type signSnapshot struct{ Positive bool }

func (s *signState) Snapshot() ([]byte, error) { return json.Marshal(signSnapshot{Positive: s.positive}) }

func restoreSign(payload []byte) (State, error) {
	var snap signSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &signState{positive: snap.Positive}, nil
}

func registerTransformKernels(r *Registry) {
	r.register(Spec{
		Kind: "diff",
		New: func(params map[string]any) (State, error) {
			k, err := intParam(params, "k", 1)
			if err != nil {
				return nil, err
			}
			return newDelayState(k, true), nil
		},
		Restore: restoreDelay,
	})
	r.register(Spec{
		Kind: "shift",
		New: func(params map[string]any) (State, error) {
			k, err := intParam(params, "k", 1)
			if err != nil {
				return nil, err
			}
			return newDelayState(k, false), nil
		},
		Restore: restoreDelay,
	})
	r.register(Spec{
		Kind: "roc",
		New: func(params map[string]any) (State, error) {
			n, err := intParam(params, "period", 1)
			if err != nil {
				return nil, err
			}
			return newROCState(n), nil
		},
		Restore: restoreROC,
	})
	r.register(Spec{
		Kind:    "true_range",
		New:     func(params map[string]any) (State, error) { return &trueRangeState{}, nil },
		Restore: restoreTrueRange,
	})
	r.register(Spec{
		Kind:    "positive_values",
		New:     func(params map[string]any) (State, error) { return &signState{positive: true}, nil },
		Restore: restoreSign,
	})
	r.register(Spec{
		Kind:    "negative_values",
		New:     func(params map[string]any) (State, error) { return &signState{positive: false}, nil },
		Restore: restoreSign,
	})
}
