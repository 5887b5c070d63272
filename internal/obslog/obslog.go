// Package obslog wires the ambient logging stack onto the engine the same
// way the teacher's factory.go and node executors configure a process
// logger: a single zerolog.Logger instance passed explicitly at
// construction (never a package-global), with domain-specific helper
// methods so call sites log events by name instead of hand-assembling
// fields every time.
package obslog

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with helpers for a small set of structured
// events: plan compilation, node dirtying, warmup transitions, and
// snapshot/restore boundaries. The planner and evaluator take no logger and
// do not call these helpers; current callers log through Raw.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing JSON lines to w at the given level ("debug",
// "info", "warn", "error", "trace"); an unrecognized level falls back to
// "info", matching the teacher's infrastructure/logger.Setup fallback.
func New(level string, w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	zl := zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))
	return Logger{zl: zl}
}

// Nop returns a Logger that discards everything, for tests and callers that
// don't want engine log output.
func Nop() Logger {
	return Logger{zl: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// Raw exposes the underlying zerolog.Logger for callers (e.g. internal/api's
// HTTP middleware) that want request-scoped child loggers.
func (l Logger) Raw() zerolog.Logger { return l.zl }

// PlanCompiled logs a successful plan compilation at debug level.
func (l Logger) PlanCompiled(irHash string, nodeCount int, dur time.Duration) {
	l.zl.Debug().
		Str("ir_hash", irHash).
		Int("node_count", nodeCount).
		Dur("duration", dur).
		Msg("plan compiled")
}

// NodeDirty logs one node entering the dirty set during an incremental step.
func (l Logger) NodeDirty(sessionEpoch, nodeID string) {
	l.zl.Debug().
		Str("session_epoch", sessionEpoch).
		Str("node_id", nodeID).
		Msg("node marked dirty")
}

// WarmupTransition logs a kernel leaving cold/warming, at trace level since
// it fires once per node per session and is rarely interesting outside deep
// debugging.
func (l Logger) WarmupTransition(nodeID, from, to string) {
	l.zl.Trace().
		Str("node_id", nodeID).
		Str("from", from).
		Str("to", to).
		Msg("warmup transition")
}

// SnapshotTaken logs a snapshot boundary at debug level.
func (l Logger) SnapshotTaken(sessionEpoch string, leafCount int) {
	l.zl.Debug().
		Str("session_epoch", sessionEpoch).
		Int("leaf_count", leafCount).
		Msg("snapshot taken")
}

// SnapshotRestored logs a restore boundary at debug level.
func (l Logger) SnapshotRestored(sessionEpoch string, schemaVersion int) {
	l.zl.Debug().
		Str("session_epoch", sessionEpoch).
		Int("schema_version", schemaVersion).
		Msg("snapshot restored")
}

// Terminal logs a session-fatal error (OrderingViolation, SnapshotMismatch)
// at error level -- these are fatal to one session, never poison siblings
// (section 7's propagation policy).
func (l Logger) Terminal(kind, message string) {
	l.zl.Error().
		Str("kind", kind).
		Msg(message)
}
