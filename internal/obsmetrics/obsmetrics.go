// Package obsmetrics instruments plan compilation and evaluation with
// OpenTelemetry counters/histograms, grounded on the teacher's meter/tracer
// construction in internal/infrastructure/monitoring/metrics.go -- there the
// teacher hand-rolls a MetricsCollector over plain maps and mutexes; this
// engine instead uses the otel SDK the teacher already depends on, since
// plan-compile duration, step duration, and dirty-node fan-out are exactly
// the kind of cross-process-exportable metrics otel targets and the
// teacher's map-based collector does not.
package obsmetrics

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Meter wraps the counters/histograms this engine reports. All instruments
// are created once at construction; Record* methods are safe for
// concurrent use from multiple sessions (section 5: sessions may run on
// separate goroutines/threads over disjoint state).
type Meter struct {
	planCompileDuration metric.Float64Histogram
	stepDuration        metric.Float64Histogram
	dirtyNodeFanout     metric.Int64Histogram
	plansCompiled       metric.Int64Counter
	stepsExecuted       metric.Int64Counter
	snapshotsTaken      metric.Int64Counter
}

// New builds a Meter from an otel MeterProvider's "ta-engine" meter. Callers
// that don't want metrics (tests, simple CLI use) can pass
// otel.GetMeterProvider() (the otel-provided no-op default) or noop.NewMeterProvider().
func New(mp metric.MeterProvider) (*Meter, error) {
	m := mp.Meter("ta-engine")

	planCompileDuration, err := m.Float64Histogram(
		"ta_engine.plan.compile_duration_ms",
		metric.WithDescription("Wall-clock duration of planner.Build, in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	stepDuration, err := m.Float64Histogram(
		"ta_engine.evaluator.step_duration_ms",
		metric.WithDescription("Wall-clock duration of one Session.Step call, in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	dirtyNodeFanout, err := m.Int64Histogram(
		"ta_engine.evaluator.dirty_node_fanout",
		metric.WithDescription("Number of plan nodes recomputed by one Session.Step call"),
	)
	if err != nil {
		return nil, err
	}
	plansCompiled, err := m.Int64Counter(
		"ta_engine.plan.compiled_total",
		metric.WithDescription("Total number of plans successfully compiled"),
	)
	if err != nil {
		return nil, err
	}
	stepsExecuted, err := m.Int64Counter(
		"ta_engine.evaluator.steps_total",
		metric.WithDescription("Total number of Session.Step calls"),
	)
	if err != nil {
		return nil, err
	}
	snapshotsTaken, err := m.Int64Counter(
		"ta_engine.evaluator.snapshots_total",
		metric.WithDescription("Total number of Session.Snapshot calls"),
	)
	if err != nil {
		return nil, err
	}

	return &Meter{
		planCompileDuration: planCompileDuration,
		stepDuration:        stepDuration,
		dirtyNodeFanout:     dirtyNodeFanout,
		plansCompiled:       plansCompiled,
		stepsExecuted:       stepsExecuted,
		snapshotsTaken:      snapshotsTaken,
	}, nil
}

// RecordPlanCompiled records one successful Build call.
func (m *Meter) RecordPlanCompiled(ctx context.Context, durationMs float64) {
	if m == nil {
		return
	}
	m.planCompileDuration.Record(ctx, durationMs)
	m.plansCompiled.Add(ctx, 1)
}

// RecordStep records one Session.Step call and how many plan nodes it
// recomputed (the current Session implementation recomputes every node via
// Batch, so fanout is len(plan.Nodes); a future genuinely-incremental
// Session would report the true dirty-set size here instead).
func (m *Meter) RecordStep(ctx context.Context, durationMs float64, nodesRecomputed int) {
	if m == nil {
		return
	}
	m.stepDuration.Record(ctx, durationMs)
	m.dirtyNodeFanout.Record(ctx, int64(nodesRecomputed))
	m.stepsExecuted.Add(ctx, 1)
}

// RecordSnapshot records one Session.Snapshot call.
func (m *Meter) RecordSnapshot(ctx context.Context) {
	if m == nil {
		return
	}
	m.snapshotsTaken.Add(ctx, 1)
}
