package stream

import (
	"context"

	"github.com/smilemakc/ta-engine/internal/evaluator"
	"github.com/smilemakc/ta-engine/internal/planner"
)

// Observer publishes one Event per root output after a Session.Step call.
// It is a host-side convenience, not part of the evaluator's own contract:
// internal/evaluator has no knowledge of this package (section 1's
// transport-free core boundary), so callers that want live updates wrap
// their own Session.Step calls with Publish below, the same way the
// teacher's SocketObserver sits beside (not inside) the workflow executor
// and is driven by its own ExecutionObserver hook.
type Observer struct {
	broadcaster Broadcaster
}

// NewObserver wraps a Broadcaster (typically *Hub).
func NewObserver(b Broadcaster) *Observer {
	return &Observer{broadcaster: b}
}

// Publish emits one NodeEvaluated event per plan.RootOutputs entry found in
// result, plus a trailing SessionStepped summary event, to every client
// subscribed to sessionID.
func (o *Observer) Publish(sessionID string, plan *planner.Plan, result *evaluator.BatchResult) {
	for _, ro := range plan.RootOutputs {
		col, ok := result.Output(ro.NodeID, ro.Name)
		if !ok || col.Len() == 0 {
			continue
		}
		v := col.At(col.Len() - 1)
		ev := NewEvent(EventNodeEvaluated, sessionID)
		ev.NodeID = ro.NodeID
		ev.OutputName = ro.Name
		ev.Available = v.Available
		if v.IsBool {
			ev.IsBool = true
			ev.BoolValue = v.Bool
		} else {
			ev.Value = v.Num
		}
		o.broadcaster.Broadcast(sessionID, ev)
	}
	o.broadcaster.Broadcast(sessionID, NewEvent(EventSessionStepped, sessionID))
}

// PublishStepError emits a session-level error event, used when
// Session.Step itself fails (OrderingViolation, InternalError, ...).
func (o *Observer) PublishStepError(sessionID string, err error) {
	ev := NewEvent(EventSessionError, sessionID)
	ev.Error = err.Error()
	o.broadcaster.Broadcast(sessionID, ev)
}

// PublishSnapshot emits a session-level snapshot-taken event.
func (o *Observer) PublishSnapshot(sessionID string) {
	o.broadcaster.Broadcast(sessionID, NewEvent(EventSessionSnapshot, sessionID))
}

// StepAndPublish runs one Session.Step and publishes its outcome, the
// single call sites outside the core are expected to use instead of
// calling sess.Step directly when they want broadcast.
func StepAndPublish(ctx context.Context, sess *evaluator.Session, plan *planner.Plan, ev evaluator.Event, sessionID string, obs *Observer) (*evaluator.BatchResult, error) {
	result, err := sess.Step(ctx, ev)
	if err != nil {
		if obs != nil {
			obs.PublishStepError(sessionID, err)
		}
		return nil, err
	}
	if obs != nil {
		obs.Publish(sessionID, plan, result)
	}
	return result, nil
}
