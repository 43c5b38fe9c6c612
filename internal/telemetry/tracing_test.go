package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/config"
)

func TestInitTracingExportsToWriter(t *testing.T) {
	var buf bytes.Buffer
	tp, err := InitTracing(config.TracingConfig{Enabled: true, ServiceName: "svc", ServiceVersion: "0.0.1"}, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "exported.span")
	span.End()

	require.NoError(t, ShutdownTracing(context.Background(), tp))
	assert.Contains(t, buf.String(), "exported.span")
}

func TestInitTracingDisabledStillCreatesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := InitTracing(config.TracingConfig{Enabled: false, ServiceName: "svc"}, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "silent.span")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, ShutdownTracing(context.Background(), tp))
	assert.Zero(t, buf.Len())
}

func TestRecorderFilters(t *testing.T) {
	recorder := NewTestSpanRecorder()
	tp := InitTestTracing("svc", "0.0.1", recorder)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	_, read := tracer.Start(context.Background(), "kv.get")
	read.End()
	_, write := tracer.Start(context.Background(), "kv.set")
	write.End()

	assert.Equal(t, 2, recorder.Count())
	assert.Len(t, recorder.GetSpansByName("kv.get"), 1)

	recorder.Clear()
	assert.Zero(t, recorder.Count())
}
