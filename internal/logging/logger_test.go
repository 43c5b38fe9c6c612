package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerWritesTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, "info")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.InfoWithTracing(ctx, "hello", logrus.Fields{"subscriber_id": "a"})

	entry := decodeLine(t, &buf)
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "a", entry["subscriber_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, "info")

	logger.ErrorWithTracing(context.Background(), "failed", errors.New("boom"), nil)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])
	assert.NotContains(t, entry, "trace_id")
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, "warn")
	logger.InfoWithTracing(context.Background(), "dropped", nil)
	assert.Zero(t, buf.Len())

	fallback := NewLoggerWithOutput(&buf, "verbose")
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "98****5670", MaskPhone("9812345670"))
	assert.Equal(t, "****", MaskPhone("1234"))
	assert.Equal(t, "a***@example.com", MaskEmail("asha@example.com"))
	assert.Equal(t, "*****", MaskEmail("bogus"))
}
