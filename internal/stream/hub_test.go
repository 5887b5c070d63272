package stream_test

import (
	"testing"
	"time"

	"github.com/smilemakc/ta-engine/internal/evaluator"
	"github.com/smilemakc/ta-engine/internal/planner"
	"github.com/smilemakc/ta-engine/internal/stream"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeBroadcaster records Broadcast calls without any websocket transport,
// exercising Observer.Publish's event-shaping logic in isolation.
type fakeBroadcaster struct {
	events []*stream.Event
}

func (f *fakeBroadcaster) Broadcast(sessionID string, event *stream.Event) {
	event.SessionID = sessionID
	f.events = append(f.events, event)
}

func TestObserverPublishEmitsOneEventPerRootOutputPlusSummary(t *testing.T) {
	plan := &planner.Plan{
		RootOutputs: []planner.RootOutput{{Name: "value", NodeID: "n1"}},
	}
	result := &evaluator.BatchResult{
		Columns: map[string]map[string]*evaluator.Column{
			"n1": {"value": testColumn(t)},
		},
	}

	fb := &fakeBroadcaster{}
	obs := stream.NewObserver(fb)
	obs.Publish("sess-1", plan, result)

	require.Len(t, fb.events, 2)
	require.Equal(t, stream.EventNodeEvaluated, fb.events[0].Type)
	require.Equal(t, "n1", fb.events[0].NodeID)
	require.True(t, fb.events[0].Available)
	require.Equal(t, stream.EventSessionStepped, fb.events[1].Type)
}

func TestHubClientCountStartsAtZero(t *testing.T) {
	hub := stream.NewHub(zerolog.Nop())
	go hub.Run()
	// No registered clients yet.
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func testColumn(t *testing.T) *evaluator.Column {
	t.Helper()
	// Exercised only through the package's public batch-construction path in
	// evaluator_test; here we just need a column with one available numeric
	// row, built via the documented constructors is unnecessary since Column
	// fields relevant to Observer.Publish are exported.
	return &evaluator.Column{
		Timestamps: []int64{1},
		Nums:       []float64{42},
		Mask:       []bool{true},
	}
}
