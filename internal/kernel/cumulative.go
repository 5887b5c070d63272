package kernel

import (
	"encoding/json"
)

// cumsumState is the unbounded running sum (section 4.1 "cumulative"
// family). Availability policy is "none": it reports available as soon as
// the first available sample arrives, and simply ignores missing samples
// thereafter (sum unchanged).
type cumsumState struct {
	sum     float64
	started bool
}

func (s *cumsumState) Step(u Update) Emit {
	v := u.Inputs[0]
	if !v.Available {
		if !s.started {
			return unavailableEmit(false)
		}
		return Emit{Value: NumValue(s.sum), Available: true}
	}
	s.sum += v.Num
	s.started = true
	return Emit{Value: NumValue(s.sum), Available: true}
}

func (s *cumsumState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupCumulative, Length: 1} }

type cumsumSnapshot struct {
	Sum     float64
	Started bool
}

func (s *cumsumState) Snapshot() ([]byte, error) {
	return json.Marshal(cumsumSnapshot{Sum: s.sum, Started: s.started})
}

func restoreCumsum(payload []byte) (State, error) {
	var snap cumsumSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &cumsumState{sum: snap.Sum, started: snap.Started}, nil
}

// obvState implements On-Balance Volume. Inputs are [close, volume]. OBV
// starts at zero on the first available tick and accumulates signed volume
// on every subsequent tick where both close and volume are available.
type obvState struct {
	obv       float64
	lastClose float64
	started   bool
}

func (s *obvState) Step(u Update) Emit {
	close, vol := u.Inputs[0], u.Inputs[1]
	if !close.Available || !vol.Available {
		if !s.started {
			return unavailableEmit(false)
		}
		return Emit{Value: NumValue(s.obv), Available: true}
	}
	if !s.started {
		s.started = true
		s.lastClose = close.Num
		return Emit{Value: NumValue(s.obv), Available: true}
	}
	switch {
	case close.Num > s.lastClose:
		s.obv += vol.Num
	case close.Num < s.lastClose:
		s.obv -= vol.Num
	}
	s.lastClose = close.Num
	return Emit{Value: NumValue(s.obv), Available: true}
}

func (s *obvState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupCumulative, Length: 1} }

type obvSnapshot struct {
	OBV       float64
	LastClose float64
	Started   bool
}

func (s *obvState) Snapshot() ([]byte, error) {
	return json.Marshal(obvSnapshot{OBV: s.obv, LastClose: s.lastClose, Started: s.started})
}

func restoreOBV(payload []byte) (State, error) {
	var snap obvSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &obvState{obv: snap.OBV, lastClose: snap.LastClose, started: snap.Started}, nil
}

// vwapState implements a rolling-window VWAP (section 9 open question:
// session-anchored vs rolling; this catalog picks rolling, see DESIGN.md).
// Inputs are [typical_price, volume].
type vwapState struct {
	n              int
	pv             []rollingSlot
	vol            []rollingSlot
	head, filled   int
	cumulativeSeen int
}

func newVWAPState(n int) *vwapState {
	return &vwapState{n: n, pv: make([]rollingSlot, n), vol: make([]rollingSlot, n)}
}

func (s *vwapState) Step(u Update) Emit {
	price, vol := u.Inputs[0], u.Inputs[1]
	available := price.Available && vol.Available
	s.pv[s.head] = rollingSlot{Value: price.Num * vol.Num, Available: available}
	s.vol[s.head] = rollingSlot{Value: vol.Num, Available: available}
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
	var pvSum, volSum float64
	start := s.head - s.filled
	for i := 0; i < s.filled; i++ {
		idx := ((start+i)%s.n + s.n) % s.n
		if s.pv[idx].Available {
			pvSum += s.pv[idx].Value
			volSum += s.vol[idx].Value
		}
	}
	if volSum == 0 {
		return unavailableEmit(false)
	}
	return Emit{Value: NumValue(pvSum / volSum), Available: true}
}

func (s *vwapState) WarmupHint() WarmupHint { return WarmupHint{Kind: WarmupWindow, Length: s.n} }

type vwapSnapshot struct {
	N      int
	PV     []rollingSlot
	Vol    []rollingSlot
	Head   int
	Filled int
	Seen   int
}

func (s *vwapState) Snapshot() ([]byte, error) {
	return json.Marshal(vwapSnapshot{N: s.n, PV: s.pv, Vol: s.vol, Head: s.head, Filled: s.filled, Seen: s.cumulativeSeen})
}

func restoreVWAP(payload []byte) (State, error) {
	var snap vwapSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &vwapState{n: snap.N, pv: snap.PV, vol: snap.Vol, head: snap.Head, filled: snap.Filled, cumulativeSeen: snap.Seen}, nil
}

func registerCumulativeKernels(r *Registry) {
	r.register(Spec{
		Kind:    "cumsum",
		New:     func(params map[string]any) (State, error) { return &cumsumState{}, nil },
		Restore: restoreCumsum,
	})
	r.register(Spec{
		Kind:    "obv",
		New:     func(params map[string]any) (State, error) { return &obvState{}, nil },
		Restore: restoreOBV,
	})
	r.register(Spec{
		Kind: "vwap",
		New: func(params map[string]any) (State, error) {
			n, err := intParam(params, "period", 20)
			if err != nil {
				return nil, err
			}
			return newVWAPState(n), nil
		},
		Restore: restoreVWAP,
	})
}
