package obsmetrics_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/smilemakc/ta-engine/internal/obsmetrics"

	"github.com/stretchr/testify/require"
)

func TestMeterRecordPlanCompiled(t *testing.T) {
	m, err := obsmetrics.New(noop.NewMeterProvider())
	require.NoError(t, err)

	m.RecordPlanCompiled(context.Background(), 12.5)
}

func TestMeterNilReceiverIsSafe(t *testing.T) {
	var m *obsmetrics.Meter
	m.RecordPlanCompiled(context.Background(), 1)
	m.RecordStep(context.Background(), 1, 3)
	m.RecordSnapshot(context.Background())
}

func TestSDKMeterProviderCollectsRecordedInstruments(t *testing.T) {
	mp, reader := obsmetrics.NewSDKMeterProvider("ta-engine-test")
	m, err := obsmetrics.New(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPlanCompiled(ctx, 5)
	m.RecordStep(ctx, 2, 4)
	m.RecordSnapshot(ctx)

	got, err := reader.Collect(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, got.ScopeMetrics)

	var metricCount int
	for _, sm := range got.ScopeMetrics {
		metricCount += len(sm.Metrics)
	}
	require.Equal(t, 6, metricCount)
}
