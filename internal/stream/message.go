// Package stream is a host convenience sitting above the core evaluator:
// a gorilla/websocket hub that broadcasts per-node emission events while an
// evaluator.Session advances, adapted from the teacher's
// internal/infrastructure/websocket hub/client/observer trio. The core
// itself stays transport-free per section 1's scope boundary -- nothing in
// internal/evaluator imports this package; callers that want live step
// broadcast wrap their own Session.Step calls with Publish (see observer.go).
package stream

import "time"

// Event types (server -> client), mirrored from the teacher's
// EventExecutionStarted/EventNodeCompleted vocabulary but renamed for the
// node-evaluation domain this engine actually has.
const (
	EventSessionStepped  = "session.stepped"
	EventNodeEvaluated   = "node.evaluated"
	EventSessionSnapshot = "session.snapshot"
	EventSessionError    = "session.error"
)

// Command types (client -> server).
const (
	CmdSubscribe   = "subscribe"
	CmdUnsubscribe = "unsubscribe"
)

// Event is one server->client message: a single root-output's freshly
// computed tail value after one Session.Step, or a session-level lifecycle
// event (snapshot taken, terminal error).
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`

	NodeID     string  `json:"node_id,omitempty"`
	OutputName string  `json:"output_name,omitempty"`
	Value      float64 `json:"value,omitempty"`
	BoolValue  bool    `json:"bool_value,omitempty"`
	IsBool     bool    `json:"is_bool,omitempty"`
	Available  bool    `json:"available,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewEvent stamps Type/SessionID/Timestamp; the Node* fields are filled in
// by the caller for per-output events.
func NewEvent(eventType, sessionID string) *Event {
	return &Event{Type: eventType, Timestamp: time.Now(), SessionID: sessionID}
}

// Command is a client->server subscription request.
type Command struct {
	Action    string `json:"action"`
	SessionID string `json:"session_id"`
}
