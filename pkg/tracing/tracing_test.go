package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestInitTracer_Disabled(t *testing.T) {
	restoreGlobals(t)

	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "wokeornot"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.False(t, isSDK)
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestInitTracer_Enabled(t *testing.T) {
	restoreGlobals(t)

	shutdown, err := InitTracer(context.Background(), Config{
		ServiceName:    "wokeornot",
		ServiceVersion: "test",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		Insecure:       true,
		SampleRate:     1,
		Enabled:        true,
	})
	require.NoError(t, err)

	_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, isSDK)

	_ = shutdown(context.Background())
}

func TestSampler(t *testing.T) {
	traceID := trace.TraceID{0x01}
	params := sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: traceID, Name: "op"}

	assert.Equal(t, sdktrace.RecordAndSample, Sampler(1).ShouldSample(params).Decision)
	assert.Equal(t, sdktrace.Drop, Sampler(0).ShouldSample(params).Decision)
	assert.Equal(t, sdktrace.RecordAndSample, Sampler(2).ShouldSample(params).Decision)
}
