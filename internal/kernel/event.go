package kernel

import "encoding/json"

// crossState backs crossup/crossdown: both require two consecutive
// available samples on both operands before the first emission; the first
// eligible tick emits available=true with value=false if no crossing
// occurred yet (section 4.1).
type crossState struct {
	up      bool
	hasPrev bool
	prevA   float64
	prevB   float64
}

func (s *crossState) Step(u Update) Emit {
	a, b := u.Inputs[0], u.Inputs[1]
	if !a.Available || !b.Available {
		// An unavailable operand forgets the running "previous" pair so
		// the next available pair restarts the two-sample eligibility
		// window, matching "both operands ready" rather than carrying a
		// stale comparison across a gap.
		s.hasPrev = false
		return unavailableEmit(true)
	}
	if !s.hasPrev {
		s.hasPrev = true
		s.prevA, s.prevB = a.Num, b.Num
		return unavailableEmit(true)
	}
	var crossed bool
	if s.up {
		crossed = s.prevA <= s.prevB && a.Num > b.Num
	} else {
		crossed = s.prevA >= s.prevB && a.Num < b.Num
	}
	s.prevA, s.prevB = a.Num, b.Num
	return Emit{Value: BoolValue(crossed), Available: true}
}

func (s *crossState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: 2} }

type crossSnapshot struct {
	Up      bool
	HasPrev bool
	PrevA   float64
	PrevB   float64
}

func (s *crossState) Snapshot() ([]byte, error) {
	return json.Marshal(crossSnapshot{Up: s.up, HasPrev: s.hasPrev, PrevA: s.prevA, PrevB: s.prevB})
}

func restoreCross(payload []byte) (State, error) {
	var snap crossSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &crossState{up: snap.Up, hasPrev: snap.HasPrev, prevA: snap.PrevA, prevB: snap.PrevB}, nil
}

// trendState backs rising/falling: single-operand comparison against the
// immediately preceding available sample.
type trendState struct {
	up      bool
	hasPrev bool
	prev    float64
}

func (s *trendState) Step(u Update) Emit {
	v := u.Inputs[0]
	if !v.Available {
		s.hasPrev = false
		return unavailableEmit(true)
	}
	if !s.hasPrev {
		s.hasPrev = true
		s.prev = v.Num
		return unavailableEmit(true)
	}
	var result bool
	if s.up {
		result = v.Num > s.prev
	} else {
		result = v.Num < s.prev
	}
	s.prev = v.Num
	return Emit{Value: BoolValue(result), Available: true}
}

func (s *trendState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: 2} }

type trendSnapshot struct {
	Up      bool
	HasPrev bool
	Prev    float64
}

func (s *trendState) Snapshot() ([]byte, error) {
	return json.Marshal(trendSnapshot{Up: s.up, HasPrev: s.hasPrev, Prev: s.prev})
}

func restoreTrend(payload []byte) (State, error) {
	var snap trendSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &trendState{up: snap.Up, hasPrev: snap.HasPrev, prev: snap.Prev}, nil
}

// inChannelState emits true while x is within [lower, upper], inclusive.
// Inputs are [x, lower, upper]; no history is required.
type inChannelState struct{}

func (s *inChannelState) Step(u Update) Emit {
	x, lower, upper := u.Inputs[0], u.Inputs[1], u.Inputs[2]
	if !x.Available || !lower.Available || !upper.Available {
		return unavailableEmit(true)
	}
	return Emit{Value: BoolValue(x.Num >= lower.Num && x.Num <= upper.Num), Available: true}
}

func (s *inChannelState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupNone, Length: 0} }
func (s *inChannelState) Snapshot() ([]byte, error) { return json.Marshal(struct{}{}) }
func restoreInChannel(payload []byte) (State, error) { return &inChannelState{}, nil }

// transitionState backs enter/exit: both watch a single boolean input
// (typically the output of in_channel) and emit true on the tick the input
// transitions false->true (enter) or true->false (exit).
type transitionState struct {
	toTrue  bool
	hasPrev bool
	prev    bool
}

func (s *transitionState) Step(u Update) Emit {
	v := u.Inputs[0]
	if !v.Available {
		s.hasPrev = false
		return unavailableEmit(true)
	}
	if !s.hasPrev {
		s.hasPrev = true
		s.prev = v.Bool
		return unavailableEmit(true)
	}
	var transitioned bool
	if s.toTrue {
		transitioned = !s.prev && v.Bool
	} else {
		transitioned = s.prev && !v.Bool
	}
	s.prev = v.Bool
	return Emit{Value: BoolValue(transitioned), Available: true}
}

func (s *transitionState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: 2} }

type transitionSnapshot struct {
	ToTrue  bool
	HasPrev bool
	Prev    bool
}

func (s *transitionState) Snapshot() ([]byte, error) {
	return json.Marshal(transitionSnapshot{ToTrue: s.toTrue, HasPrev: s.hasPrev, Prev: s.prev})
}

func restoreTransition(payload []byte) (State, error) {
	var snap transitionSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &transitionState{toTrue: snap.ToTrue, hasPrev: snap.HasPrev, prev: snap.Prev}, nil
}

func registerEventKernels(r *Registry) {
	r.register(Spec{Kind: "crossup", New: func(map[string]any) (State, error) { return &crossState{up: true}, nil }, Restore: restoreCross})
	r.register(Spec{Kind: "crossdown", New: func(map[string]any) (State, error) { return &crossState{up: false}, nil }, Restore: restoreCross})
	r.register(Spec{Kind: "rising", New: func(map[string]any) (State, error) { return &trendState{up: true}, nil }, Restore: restoreTrend})
	r.register(Spec{Kind: "falling", New: func(map[string]any) (State, error) { return &trendState{up: false}, nil }, Restore: restoreTrend})
	r.register(Spec{Kind: "in_channel", New: func(map[string]any) (State, error) { return &inChannelState{}, nil }, Restore: restoreInChannel})
	r.register(Spec{Kind: "enter", New: func(map[string]any) (State, error) { return &transitionState{toTrue: true}, nil }, Restore: restoreTransition})
	r.register(Spec{Kind: "exit", New: func(map[string]any) (State, error) { return &transitionState{toTrue: false}, nil }, Restore: restoreTransition})
}
