package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"mokosmart/internal/config"
	"mokosmart/pkg/logging"
)

func TestWithLogTraceID(t *testing.T) {
	tp, err := Init(config.TracingConfig{}, "")
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	ctx, span := StartDecodeSpan(context.Background(), "test")
	defer span.End()

	ctx = WithLogTraceID(ctx, span)

	assert.Equal(t, span.SpanContext().TraceID().String(), logging.Value(ctx, logging.TraceIDKey))
	assert.Contains(t, logging.GetLogFields(ctx), logging.TraceIDKey)
}

func TestWithLogTraceID_NoTraceID(t *testing.T) {
	_, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "noop")

	ctx := WithLogTraceID(context.Background(), span)

	assert.Empty(t, logging.Value(ctx, logging.TraceIDKey))
}

func TestInitDisabledDoesNotRecord(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false}, "mokosmart-bridge")
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, span := GetTracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.False(t, span.IsRecording())
	assert.True(t, span.SpanContext().HasTraceID())
	assert.False(t, span.SpanContext().IsSampled())
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		cfg  config.SamplerConfig
		want string
	}{
		{cfg: config.SamplerConfig{Type: "always_off"}, want: "AlwaysOffSampler"},
		{cfg: config.SamplerConfig{Type: "always_on"}, want: "AlwaysOnSampler"},
		{cfg: config.SamplerConfig{}, want: "AlwaysOnSampler"},
		{cfg: config.SamplerConfig{Type: "traceidratio", Param: 0.5}, want: "TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.Type, func(t *testing.T) {
			assert.Equal(t, tt.want, newSampler(tt.cfg).Description())
		})
	}
}

func TestResolveServiceName(t *testing.T) {
	assert.Equal(t, "explicit", resolveServiceName(config.TracingConfig{ServiceName: "configured"}, "explicit"))
	assert.Equal(t, "configured", resolveServiceName(config.TracingConfig{ServiceName: "configured"}, ""))
	assert.Equal(t, "mokosmart-bridge", resolveServiceName(config.TracingConfig{}, ""))
}
