package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"sampling too high", func(c *Config) { c.TraceSamplingRate = 1.5 }, true},
		{"unknown metrics exporter", func(c *Config) { c.MetricsExporter = "statsd" }, true},
		{"unknown tracing exporter", func(c *Config) { c.TracingExporter = "jaeger" }, true},
		{"otlp tracing without endpoint", func(c *Config) { c.TracingExporter = ExporterOTLP }, true},
		{"otlp metrics with endpoint", func(c *Config) {
			c.MetricsExporter = ExporterOTLP
			c.OTLPEndpoint = "localhost:4318"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig())
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.False(t, p.ServesPrometheus())
	require.NotNil(t, p.Metrics())
	assert.NotNil(t, p.Tracer("test"))

	// The zero Metrics must be safe to use.
	p.Metrics().RecordEvent(context.Background(), "message", "help", StatusSuccess, time.Millisecond)
	p.Metrics().RecordStoreOperation(context.Background(), "memory", "append", StatusSuccess, time.Millisecond)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Prometheus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.ServiceVersion = "test"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := NewProvider(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(ctx) }()

	assert.True(t, p.Enabled())
	assert.True(t, p.ServesPrometheus())
	assert.NotNil(t, p.Metrics())
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.MetricsExporter = "statsd"

	_, err := NewProvider(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordHTTPRequest(context.Background(), "POST", "/callback", 200, time.Millisecond)
	m.RecordReply(context.Background(), StatusError)
}

func TestMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordEvent(ctx, "message", "add_task", StatusSuccess, 10*time.Millisecond)
	m.RecordEvent(ctx, "message", "add_task", StatusSuccess, 20*time.Millisecond)
	m.RecordStoreOperation(ctx, "sheets", "append", StatusError, time.Second)
	m.RecordReply(ctx, StatusSuccess)
	m.RecordHTTPRequest(ctx, "POST", "/callback", 200, time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					counts[md.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), counts["bot_events_total"])
	assert.Equal(t, int64(1), counts["store_operations_total"])
	assert.Equal(t, int64(1), counts["bot_replies_total"])
	assert.Equal(t, int64(1), counts["http_requests_total"])
}
