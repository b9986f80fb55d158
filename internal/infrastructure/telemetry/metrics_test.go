package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/infrastructure/config"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func newTestMeter(t *testing.T) (*MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumPoints(t *testing.T, m metricdata.Metrics) []metricdata.DataPoint[int64] {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	return sum.DataPoints
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), config.TelemetryConfig{}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "waifu-exchange-test",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = mp.Shutdown(ctx)
}

func TestCounterAndHistogram(t *testing.T) {
	mp, reader := newTestMeter(t)
	meter := mp.Meter("test")

	counter, err := NewCounter(meter, "test_total", "test counter", "{op}")
	require.NoError(t, err)
	counter.Inc(context.Background(), AttrProposalKind.String("gift"))
	counter.Add(context.Background(), 4, AttrProposalKind.String("gift"))

	hist, err := NewHistogram(meter, HistogramOpts{
		Name:       "test_duration_seconds",
		Unit:       "s",
		Boundaries: HTTPDurationBuckets,
	})
	require.NoError(t, err)
	hist.RecordDuration(context.Background(), 30*time.Millisecond)
	hist.Record(context.Background(), 2)

	metrics := collect(t, reader)

	points := sumPoints(t, metrics["test_total"])
	require.Len(t, points, 1)
	assert.Equal(t, int64(5), points[0].Value)

	h, ok := metrics["test_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(2), h.DataPoints[0].Count)
	assert.Equal(t, HTTPDurationBuckets, h.DataPoints[0].Bounds)
}
