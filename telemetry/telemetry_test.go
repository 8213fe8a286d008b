package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestProvider_Shutdown_Nil(t *testing.T) {
	t.Parallel()
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInstruments_RecordThroughSDKProvider(t *testing.T) {
	t.Parallel()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	// Инструменты поверх настоящего SDK-провайдера действительно
	// накапливают значения, а не уходят в пустоту.
	i := newInstrumentsFromMeter(mp.Meter(meterName))
	ctx := context.Background()
	i.IncSubmitted(ctx)
	i.IncSubmitted(ctx)
	i.AddFlushed(ctx, 5)
	i.AddDropped(ctx, 3)
	i.IncFlushErrors(ctx)
	i.RecordFlushDuration(ctx, 12.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	sums := make(map[string]int64)
	histograms := make(map[string]uint64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histograms[m.Name] += dp.Count
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["querylog.submitted"])
	assert.Equal(t, int64(5), sums["querylog.flushed_rows"])
	assert.Equal(t, int64(3), sums["querylog.dropped_rows"])
	assert.Equal(t, int64(1), sums["querylog.flush_errors"])
	assert.Equal(t, uint64(1), histograms["querylog.flush_duration"])
}
