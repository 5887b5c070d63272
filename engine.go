// Package taengine is the repository's public facade, grounded on the
// teacher's root-level mbflow.go/factory.go pair: there, package-level
// constructor functions (NewWorkflow, NewExecutor, NewMemoryStorage, ...)
// wrap internal/domain and internal/application/executor so a caller never
// imports internal/ directly. Engine plays the same role here, wrapping
// internal/catalog, internal/kernel, internal/preview, internal/obslog and
// internal/obsmetrics behind one embeddable type for callers that want the
// expression engine as a library rather than over cmd/server's HTTP API.
package taengine

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/dataset"
	"github.com/smilemakc/ta-engine/internal/evaluator"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/normalize"
	"github.com/smilemakc/ta-engine/internal/obslog"
	"github.com/smilemakc/ta-engine/internal/obsmetrics"
	"github.com/smilemakc/ta-engine/internal/planner"
	"github.com/smilemakc/ta-engine/internal/preview"
)

// Engine bundles the static catalog and kernel registry with the ambient
// logger/metrics an embedder needs, exactly the set of long-lived,
// process-wide facilities factory.go's NewExecutor(opts...) assembles for
// the teacher's workflow executor.
type Engine struct {
	cat     *catalog.Catalog
	kernels *kernel.Registry
	log     obslog.Logger
	metrics *obsmetrics.Meter
}

// Option configures an Engine at construction, mirroring the teacher's
// ExecutorOption functional-options pattern (factory.go/mbflow.go).
type Option func(*Engine)

// WithLogger sets the Engine's structured logger; the default is obslog.Nop().
func WithLogger(log obslog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMeterProvider sets the Engine's OpenTelemetry MeterProvider; the
// default is the otel no-op provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) {
		m, err := obsmetrics.New(mp)
		if err == nil {
			e.metrics = m
		}
	}
}

// New builds an Engine with the canonical catalog and kernel registry
// (section 4.1/4.2 of the specification) plus any supplied options.
func New(opts ...Option) *Engine {
	e := &Engine{
		cat:     catalog.New(),
		kernels: kernel.NewRegistry(),
		log:     obslog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics, _ = obsmetrics.New(noop.NewMeterProvider())
	}
	return e
}

// Catalog exposes the Engine's indicator catalog, e.g. for a caller
// rendering a picklist of available indicators (catalog.Export()).
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Preview compiles root against ds and evaluates it in batch mode
// (section 4.6's preview()).
func (e *Engine) Preview(root ir.Node, ds *dataset.Dataset) (*preview.Result, error) {
	return preview.Preview(root, ds, e.cat, e.kernels)
}

// Validate compiles root against schema without touching any Dataset
// values (section 4.6's validate()).
func (e *Engine) Validate(root ir.Node, schema dataset.Schema) *preview.ValidateResult {
	return preview.Validate(root, schema, e.cat, e.kernels)
}

// Analyze reports root's worst-case lookback and recommended history depth
// (section 4.6's analyze()).
func (e *Engine) Analyze(root ir.Node) (*preview.AnalyzeResult, error) {
	return preview.Analyze(root, e.cat, e.kernels)
}

// NewSession builds an incremental evaluator.Session for root against ds's
// schema (section 4.5's incremental mode). Its Plan is also returned since
// callers typically need it for snapshotting or streaming.
func (e *Engine) NewSession(root ir.Node, schema dataset.Schema) (*evaluator.Session, *planner.Plan, error) {
	plan, err := e.plan(root, schema)
	if err != nil {
		return nil, nil, err
	}
	return evaluator.Initialize(plan, e.kernels), plan, nil
}

// plan runs the same normalize -> typecheck -> build prefix internal/preview
// uses, duplicated here (rather than exported from internal/preview) since
// that package's compile() intentionally stays unexported -- callers are
// meant to reach it through Preview/Validate/Analyze, and NewSession is the
// one Engine method that needs the resulting Plan directly.
func (e *Engine) plan(root ir.Node, schema dataset.Schema) (*planner.Plan, error) {
	normalized, _, err := normalize.Normalize(root, e.cat)
	if err != nil {
		return nil, err
	}
	if err := normalize.Typecheck(normalized, e.cat); err != nil {
		return nil, err
	}
	return planner.Build(normalized, e.cat, e.kernels, schema)
}
