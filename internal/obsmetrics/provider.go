package obsmetrics

import (
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// NewSDKMeterProvider builds a real otel SDK MeterProvider backed by a
// ManualReader, grounded on the teacher's backend/internal/infrastructure/
// tracing.NewProvider (the metric-SDK counterpart of that package's
// trace-SDK provider; the resource here is a single resource.NewSchemaless
// service.name attribute, with no resource.Merge). Unlike
// cmd/server's default noop.NewMeterProvider(), this collects real data a
// caller can pull on demand via the returned *sdkmetric.ManualReader's
// Collect method -- useful for a local debug endpoint or a test asserting
// on recorded values, without requiring an OTLP collector to be running.
func NewSDKMeterProvider(serviceName string) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return mp, reader
}
