package taengine

import (
	"io"
	"os"

	"github.com/smilemakc/ta-engine/internal/obslog"
)

// Logger re-exports internal/obslog.Logger at the package root, grounded on
// the teacher's root logger.go aliasing monitoring.ConsoleLogger /
// ClickHouseLogger for public use. ClickHouseLogger itself has no
// equivalent here: it is a time-series log sink for workflow executions,
// and obslog.New already accepts an arbitrary io.Writer (so a caller
// wanting a ClickHouse-backed sink can supply one without a dedicated
// wrapper type); dropped, see DESIGN.md.
type Logger = obslog.Logger

// NewLogger builds a Logger writing JSON lines to stdout at the given
// level, matching the teacher's NewDefaultConsoleLogger convenience
// constructor.
func NewLogger(level string) Logger {
	return obslog.New(level, os.Stdout)
}

// NewLoggerTo builds a Logger writing to an arbitrary writer, the
// equivalent of the teacher's NewConsoleLogger(cfg) with an explicit
// output target.
func NewLoggerTo(level string, w io.Writer) Logger {
	return obslog.New(level, w)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return obslog.Nop()
}
