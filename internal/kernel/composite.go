package kernel

import (
	"encoding/json"
	"math"
)

// This file holds the small set of native kernels for composite indicators
// whose math needs a select/abs primitive the IR's BinaryOp/UnaryOp algebra
// does not expose (section 4.1's canonical op list has no conditional or
// absolute-value operator). Every other composite indicator in the catalog
// (rsi, macd, bbands, stochastic, atr, donchian, keltner, williams_r,
// coppock, elder_ray, ao, cmf, ichimoku, swing_points, supertrend) is a pure
// sub-DAG over the primitives above; these few are not, so they get their
// own State implementation the same way psarState/supertrendState already
// do for single-output composites.

// adxState implements Wilder's ADX/+DI/-DI off of high/low/close inputs. It
// composes three emaLikeState (Wilder smoothers) internally for TR, +DM,
// -DM, plus a fourth to smooth DX into ADX -- the same "compose simpler
// kernels inside one State" technique hmaState uses for its three wmaState
// children.
type adxState struct {
	n                            int
	hasPrev                      bool
	prevHigh, prevLow, prevClose float64
	trRma, plusDMRma, minusDMRma *emaLikeState
	dxRma                        *emaLikeState
}

func newADXState(n int) *adxState {
	return &adxState{
		n:          n,
		trRma:      &emaLikeState{alpha: 1.0 / float64(n), n: n},
		plusDMRma:  &emaLikeState{alpha: 1.0 / float64(n), n: n},
		minusDMRma: &emaLikeState{alpha: 1.0 / float64(n), n: n},
		dxRma:      &emaLikeState{alpha: 1.0 / float64(n), n: n},
	}
}

func (s *adxState) Step(u Update) Emit {
	high, low, close := u.Inputs[0], u.Inputs[1], u.Inputs[2]
	if !high.Available || !low.Available || !close.Available {
		return unavailableEmit(false)
	}
	if !s.hasPrev {
		s.hasPrev = true
		s.prevHigh, s.prevLow, s.prevClose = high.Num, low.Num, close.Num
		return unavailableEmit(false)
	}
	upMove := high.Num - s.prevHigh
	downMove := s.prevLow - low.Num
	plusDM, minusDM := 0.0, 0.0
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}
	tr := math.Max(high.Num-low.Num, math.Max(math.Abs(high.Num-s.prevClose), math.Abs(low.Num-s.prevClose)))
	s.prevHigh, s.prevLow, s.prevClose = high.Num, low.Num, close.Num

	trEmit := s.trRma.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(tr)}})
	plusEmit := s.plusDMRma.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(plusDM)}})
	minusEmit := s.minusDMRma.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(minusDM)}})
	if !trEmit.Available || trEmit.Value.Num == 0 {
		return unavailableEmit(false)
	}
	plusDI := 100 * plusEmit.Value.Num / trEmit.Value.Num
	minusDI := 100 * minusEmit.Value.Num / trEmit.Value.Num
	var dx float64
	if plusDI+minusDI != 0 {
		dx = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}
	dxEmit := s.dxRma.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(dx)}})
	if !dxEmit.Available {
		return Emit{
			Value:     Unavailable(false),
			Available: false,
			Extra:     map[string]Value{"plus_di": Unavailable(false), "minus_di": Unavailable(false)},
		}
	}
	return Emit{
		Value:     NumValue(dxEmit.Value.Num),
		Available: true,
		Extra:     map[string]Value{"plus_di": NumValue(plusDI), "minus_di": NumValue(minusDI)},
	}
}

func (s *adxState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupRecursive, Length: 2 * s.n} }

type adxSnapshot struct {
	N                            int
	HasPrev                      bool
	PrevHigh, PrevLow, PrevClose float64
	TR, PlusDM, MinusDM, DX      json.RawMessage
}

func (s *adxState) Snapshot() ([]byte, error) {
	tr, err := s.trRma.Snapshot()
	if err != nil {
		return nil, err
	}
	plus, err := s.plusDMRma.Snapshot()
	if err != nil {
		return nil, err
	}
	minus, err := s.minusDMRma.Snapshot()
	if err != nil {
		return nil, err
	}
	dx, err := s.dxRma.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(adxSnapshot{
		N: s.n, HasPrev: s.hasPrev, PrevHigh: s.prevHigh, PrevLow: s.prevLow, PrevClose: s.prevClose,
		TR: tr, PlusDM: plus, MinusDM: minus, DX: dx,
	})
}

func restoreADX(payload []byte) (State, error) {
	var snap adxSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	tr, err := restoreEmaLike(snap.TR)
	if err != nil {
		return nil, err
	}
	plus, err := restoreEmaLike(snap.PlusDM)
	if err != nil {
		return nil, err
	}
	minus, err := restoreEmaLike(snap.MinusDM)
	if err != nil {
		return nil, err
	}
	dx, err := restoreEmaLike(snap.DX)
	if err != nil {
		return nil, err
	}
	return &adxState{
		n: snap.N, hasPrev: snap.HasPrev, prevHigh: snap.PrevHigh, prevLow: snap.PrevLow, prevClose: snap.PrevClose,
		trRma: tr.(*emaLikeState), plusDMRma: plus.(*emaLikeState), minusDMRma: minus.(*emaLikeState), dxRma: dx.(*emaLikeState),
	}, nil
}

// vortexState implements VI+/VI- off of high/low/close, composing three
// rollingState(sum) windows internally for VM+, VM-, and TR.
type vortexState struct {
	n                            int
	hasPrev                      bool
	prevHigh, prevLow, prevClose float64
	vmPlus, vmMinus, tr          *rollingState
}

func newVortexState(n int) *vortexState {
	return &vortexState{
		n: n, vmPlus: newRollingState(rollingSum, n), vmMinus: newRollingState(rollingSum, n), tr: newRollingState(rollingSum, n),
	}
}

func (s *vortexState) Step(u Update) Emit {
	high, low, close := u.Inputs[0], u.Inputs[1], u.Inputs[2]
	if !high.Available || !low.Available || !close.Available {
		return unavailableEmit(false)
	}
	if !s.hasPrev {
		s.hasPrev = true
		s.prevHigh, s.prevLow, s.prevClose = high.Num, low.Num, close.Num
		return unavailableEmit(false)
	}
	vmPlus := math.Abs(high.Num - s.prevLow)
	vmMinus := math.Abs(low.Num - s.prevHigh)
	tr := math.Max(high.Num-low.Num, math.Max(math.Abs(high.Num-s.prevClose), math.Abs(low.Num-s.prevClose)))
	s.prevHigh, s.prevLow, s.prevClose = high.Num, low.Num, close.Num

	vmPlusEmit := s.vmPlus.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(vmPlus)}})
	vmMinusEmit := s.vmMinus.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(vmMinus)}})
	trEmit := s.tr.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(tr)}})
	if !vmPlusEmit.Available || !trEmit.Available || trEmit.Value.Num == 0 {
		return Emit{
			Value:     Unavailable(false),
			Available: false,
			Extra:     map[string]Value{"vi_minus": Unavailable(false)},
		}
	}
	viPlus := vmPlusEmit.Value.Num / trEmit.Value.Num
	viMinus := vmMinusEmit.Value.Num / trEmit.Value.Num
	return Emit{Value: NumValue(viPlus), Available: true, Extra: map[string]Value{"vi_minus": NumValue(viMinus)}}
}

func (s *vortexState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: s.n + 1} }

type vortexSnapshot struct {
	N                            int
	HasPrev                      bool
	PrevHigh, PrevLow, PrevClose float64
	VMPlus, VMMinus, TR          json.RawMessage
}

func (s *vortexState) Snapshot() ([]byte, error) {
	vp, err := s.vmPlus.Snapshot()
	if err != nil {
		return nil, err
	}
	vm, err := s.vmMinus.Snapshot()
	if err != nil {
		return nil, err
	}
	tr, err := s.tr.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(vortexSnapshot{
		N: s.n, HasPrev: s.hasPrev, PrevHigh: s.prevHigh, PrevLow: s.prevLow, PrevClose: s.prevClose,
		VMPlus: vp, VMMinus: vm, TR: tr,
	})
}

func restoreVortex(payload []byte) (State, error) {
	var snap vortexSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	vp, err := restoreRolling(snap.VMPlus)
	if err != nil {
		return nil, err
	}
	vm, err := restoreRolling(snap.VMMinus)
	if err != nil {
		return nil, err
	}
	tr, err := restoreRolling(snap.TR)
	if err != nil {
		return nil, err
	}
	return &vortexState{
		n: snap.N, hasPrev: snap.HasPrev, prevHigh: snap.PrevHigh, prevLow: snap.PrevLow, prevClose: snap.PrevClose,
		vmPlus: vp.(*rollingState), vmMinus: vm.(*rollingState), tr: tr.(*rollingState),
	}, nil
}

// cciState implements the Commodity Channel Index off of high/low/close: a
// rolling window of typical price with both its mean and mean absolute
// deviation recomputed per tick, mirroring swingState's "loop the window
// every step" approach rather than an incremental abs-deviation estimator.
type cciState struct {
	n              int
	buf            []rollingSlot
	head, filled   int
	cumulativeSeen int
}

func newCCIState(n int) *cciState { return &cciState{n: n, buf: make([]rollingSlot, n)} }

func (s *cciState) Step(u Update) Emit {
	high, low, close := u.Inputs[0], u.Inputs[1], u.Inputs[2]
	available := high.Available && low.Available && close.Available
	tp := (high.Num + low.Num + close.Num) / 3
	s.buf[s.head] = rollingSlot{Value: tp, Available: available}
	s.head = (s.head + 1) % s.n
	if s.filled < s.n {
		s.filled++
	}
	if available {
		s.cumulativeSeen++
	}
	if s.cumulativeSeen < s.n {
		return unavailableEmit(false)
	}
	values := make([]float64, 0, s.filled)
	for i := 0; i < s.filled; i++ {
		if s.buf[i].Available {
			values = append(values, s.buf[i].Value)
		}
	}
	if len(values) == 0 {
		return unavailableEmit(false)
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	mad := 0.0
	for _, v := range values {
		mad += math.Abs(v - mean)
	}
	mad /= float64(len(values))
	if mad == 0 {
		return unavailableEmit(false)
	}
	cci := (tp - mean) / (0.015 * mad)
	return Emit{Value: NumValue(cci), Available: true}
}

func (s *cciState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: s.n} }

type cciSnapshot struct {
	N      int
	Buf    []rollingSlot
	Head   int
	Filled int
	Seen   int
}

func (s *cciState) Snapshot() ([]byte, error) {
	return json.Marshal(cciSnapshot{N: s.n, Buf: s.buf, Head: s.head, Filled: s.filled, Seen: s.cumulativeSeen})
}

func restoreCCI(payload []byte) (State, error) {
	var snap cciSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &cciState{n: snap.N, buf: snap.Buf, head: snap.Head, filled: snap.Filled, cumulativeSeen: snap.Seen}, nil
}

// mfiState implements the Money Flow Index off of high/low/close/volume,
// classifying each bar's typical-price move as positive or negative flow
// with a plain Go comparison (the IR has no conditional operator to express
// this as a sub-DAG) and tracking rolling sums of each internally.
type mfiState struct {
	n                 int
	hasPrevTP         bool
	prevTP            float64
	posFlow, negFlow  *rollingState
}

func newMFIState(n int) *mfiState {
	return &mfiState{n: n, posFlow: newRollingState(rollingSum, n), negFlow: newRollingState(rollingSum, n)}
}

func (s *mfiState) Step(u Update) Emit {
	high, low, close, volume := u.Inputs[0], u.Inputs[1], u.Inputs[2], u.Inputs[3]
	if !high.Available || !low.Available || !close.Available || !volume.Available {
		return unavailableEmit(false)
	}
	tp := (high.Num + low.Num + close.Num) / 3
	rawMF := tp * volume.Num
	pos, neg := 0.0, 0.0
	if s.hasPrevTP {
		if tp > s.prevTP {
			pos = rawMF
		} else if tp < s.prevTP {
			neg = rawMF
		}
	}
	s.hasPrevTP = true
	s.prevTP = tp

	posEmit := s.posFlow.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(pos)}})
	negEmit := s.negFlow.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(neg)}})
	if !posEmit.Available || !negEmit.Available {
		return unavailableEmit(false)
	}
	if negEmit.Value.Num == 0 {
		return Emit{Value: NumValue(100), Available: true}
	}
	moneyRatio := posEmit.Value.Num / negEmit.Value.Num
	mfi := 100 - 100/(1+moneyRatio)
	return Emit{Value: NumValue(mfi), Available: true}
}

func (s *mfiState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: s.n + 1} }

type mfiSnapshot struct {
	N                int
	HasPrevTP        bool
	PrevTP           float64
	PosFlow, NegFlow json.RawMessage
}

func (s *mfiState) Snapshot() ([]byte, error) {
	pos, err := s.posFlow.Snapshot()
	if err != nil {
		return nil, err
	}
	neg, err := s.negFlow.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(mfiSnapshot{N: s.n, HasPrevTP: s.hasPrevTP, PrevTP: s.prevTP, PosFlow: pos, NegFlow: neg})
}

func restoreMFI(payload []byte) (State, error) {
	var snap mfiSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	pos, err := restoreRolling(snap.PosFlow)
	if err != nil {
		return nil, err
	}
	neg, err := restoreRolling(snap.NegFlow)
	if err != nil {
		return nil, err
	}
	return &mfiState{n: snap.N, hasPrevTP: snap.HasPrevTP, prevTP: snap.PrevTP, posFlow: pos.(*rollingState), negFlow: neg.(*rollingState)}, nil
}

// klingerKVOState implements the Klinger Volume Oscillator's raw KVO line
// off of high/low/close/volume; the catalog's "klinger" entry wraps this
// with a 9-period EMA signal line (see builtins_composite.go).
type klingerKVOState struct {
	n                            int
	hasPrev                      bool
	prevTrend                    float64 // +1 or -1
	prevDM, prevCM               float64
	prevHigh, prevLow, prevClose float64
	fast, slow                   *emaLikeState
}

func newKlingerKVOState(fastN, slowN int) *klingerKVOState {
	return &klingerKVOState{
		fast: &emaLikeState{alpha: 2.0 / (float64(fastN) + 1), n: fastN},
		slow: &emaLikeState{alpha: 2.0 / (float64(slowN) + 1), n: slowN},
	}
}

func (s *klingerKVOState) Step(u Update) Emit {
	high, low, close, volume := u.Inputs[0], u.Inputs[1], u.Inputs[2], u.Inputs[3]
	if !high.Available || !low.Available || !close.Available || !volume.Available {
		return unavailableEmit(false)
	}
	hlc := high.Num + low.Num + close.Num
	trend := 1.0
	if s.hasPrev {
		prevHLC := s.prevHigh + s.prevLow + s.prevClose
		if hlc < prevHLC {
			trend = -1.0
		}
	}
	dm := high.Num - low.Num
	var cm float64
	switch {
	case !s.hasPrev:
		cm = dm
	case trend == s.prevTrend:
		cm = s.prevCM + dm
	default:
		cm = s.prevDM + dm
	}
	var volumeForce float64
	if cm != 0 {
		volumeForce = volume.Num * trend * math.Abs(2*(dm/cm)-1) * 100
	}
	s.hasPrev = true
	s.prevTrend = trend
	s.prevDM, s.prevCM = dm, cm
	s.prevHigh, s.prevLow, s.prevClose = high.Num, low.Num, close.Num

	fastEmit := s.fast.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(volumeForce)}})
	slowEmit := s.slow.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{NumValue(volumeForce)}})
	if !fastEmit.Available || !slowEmit.Available {
		return unavailableEmit(false)
	}
	return Emit{Value: NumValue(fastEmit.Value.Num - slowEmit.Value.Num), Available: true}
}

func (s *klingerKVOState) WarmupHint() WarmupHint {
	return WarmupHint{Kind: WarmupRecursive, Length: s.slow.n}
}

type klingerSnapshot struct {
	HasPrev                      bool
	PrevTrend                    float64
	PrevDM, PrevCM               float64
	PrevHigh, PrevLow, PrevClose float64
	Fast, Slow                   json.RawMessage
}

func (s *klingerKVOState) Snapshot() ([]byte, error) {
	fast, err := s.fast.Snapshot()
	if err != nil {
		return nil, err
	}
	slow, err := s.slow.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(klingerSnapshot{
		HasPrev: s.hasPrev, PrevTrend: s.prevTrend, PrevDM: s.prevDM, PrevCM: s.prevCM,
		PrevHigh: s.prevHigh, PrevLow: s.prevLow, PrevClose: s.prevClose,
		Fast: fast, Slow: slow,
	})
}

func restoreKlinger(payload []byte) (State, error) {
	var snap klingerSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	fast, err := restoreEmaLike(snap.Fast)
	if err != nil {
		return nil, err
	}
	slow, err := restoreEmaLike(snap.Slow)
	if err != nil {
		return nil, err
	}
	return &klingerKVOState{
		hasPrev: snap.HasPrev, prevTrend: snap.PrevTrend, prevDM: snap.PrevDM, prevCM: snap.PrevCM,
		prevHigh: snap.PrevHigh, prevLow: snap.PrevLow, prevClose: snap.PrevClose,
		fast: fast.(*emaLikeState), slow: slow.(*emaLikeState),
	}, nil
}

// fisherState implements the Fisher Transform off of a single price input:
// a rolling min/max normalization into [-1,1] followed by the recursive
// inverse-hyperbolic-tangent-like smoothing. The catalog's "fisher" entry
// wraps this with a one-bar TimeShift for the trigger line.
type fisherState struct {
	n                    int
	minState, maxState   *rollingState
	hasValue             bool
	value, fisher        float64
}

func newFisherState(n int) *fisherState {
	return &fisherState{n: n, minState: newRollingState(rollingMin, n), maxState: newRollingState(rollingMax, n)}
}

func (s *fisherState) Step(u Update) Emit {
	v := u.Inputs[0]
	minEmit := s.minState.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{v}})
	maxEmit := s.maxState.Step(Update{Timestamp: u.Timestamp, Inputs: []Value{v}})
	if !v.Available || !minEmit.Available || !maxEmit.Available {
		return unavailableEmit(false)
	}
	rng := maxEmit.Value.Num - minEmit.Value.Num
	var raw float64
	if rng != 0 {
		raw = 2*((v.Num-minEmit.Value.Num)/rng) - 1
	}
	if !s.hasValue {
		s.hasValue = true
		s.value = raw
	} else {
		s.value = 0.33*raw + 0.67*s.value
	}
	clamped := s.value
	if clamped > 0.999 {
		clamped = 0.999
	} else if clamped < -0.999 {
		clamped = -0.999
	}
	s.fisher = 0.5*math.Log((1+clamped)/(1-clamped)) + 0.5*s.fisher
	return Emit{Value: NumValue(s.fisher), Available: true}
}

func (s *fisherState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: s.n} }

type fisherSnapshot struct {
	N                  int
	MinState, MaxState json.RawMessage
	HasValue           bool
	Value, Fisher      float64
}

func (s *fisherState) Snapshot() ([]byte, error) {
	minB, err := s.minState.Snapshot()
	if err != nil {
		return nil, err
	}
	maxB, err := s.maxState.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fisherSnapshot{N: s.n, MinState: minB, MaxState: maxB, HasValue: s.hasValue, Value: s.value, Fisher: s.fisher})
}

func restoreFisher(payload []byte) (State, error) {
	var snap fisherSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	minS, err := restoreRolling(snap.MinState)
	if err != nil {
		return nil, err
	}
	maxS, err := restoreRolling(snap.MaxState)
	if err != nil {
		return nil, err
	}
	return &fisherState{
		n: snap.N, minState: minS.(*rollingState), maxState: maxS.(*rollingState),
		hasValue: snap.HasValue, value: snap.Value, fisher: snap.Fisher,
	}, nil
}

func registerCompositeKernels(r *Registry) {
	r.register(Spec{
		Kind: "adx",
		New: func(params map[string]any) (State, error) {
			n, err := intParam(params, "period", 14)
			if err != nil {
				return nil, err
			}
			return newADXState(n), nil
		},
		Restore: restoreADX,
	})
	r.register(Spec{
		Kind: "vortex",
		New: func(params map[string]any) (State, error) {
			n, err := intParam(params, "period", 14)
			if err != nil {
				return nil, err
			}
			return newVortexState(n), nil
		},
		Restore: restoreVortex,
	})
	r.register(Spec{
		Kind: "cci",
		New: func(params map[string]any) (State, error) {
			n, err := intParam(params, "period", 20)
			if err != nil {
				return nil, err
			}
			return newCCIState(n), nil
		},
		Restore: restoreCCI,
	})
	r.register(Spec{
		Kind: "mfi",
		New: func(params map[string]any) (State, error) {
			n, err := intParam(params, "period", 14)
			if err != nil {
				return nil, err
			}
			return newMFIState(n), nil
		},
		Restore: restoreMFI,
	})
	r.register(Spec{
		Kind: "klinger_kvo",
		New: func(params map[string]any) (State, error) {
			fast, err := intParam(params, "fast", 34)
			if err != nil {
				return nil, err
			}
			slow, err := intParam(params, "slow", 55)
			if err != nil {
				return nil, err
			}
			return newKlingerKVOState(fast, slow), nil
		},
		Restore: restoreKlinger,
	})
	r.register(Spec{
		Kind: "fisher",
		New: func(params map[string]any) (State, error) {
			n, err := intParam(params, "period", 10)
			if err != nil {
				return nil, err
			}
			return newFisherState(n), nil
		},
		Restore: restoreFisher,
	})
}
