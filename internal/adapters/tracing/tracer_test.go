package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/xjson"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newCapture() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), buf
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		require.NoError(t, xjson.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestNewContextGeneratesIdentifiers(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	execCtx := NewContext(ContextOptions{MaxRetryAttempts: 3, StoryID: "WISH-7", StartTime: start})

	_, err := uuid.Parse(execCtx.TraceID)
	assert.NoError(t, err)

	id, err := ulid.Parse(execCtx.GraphExecutionID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(start), id.Time())

	assert.Equal(t, 1, execCtx.RetryAttempt)
	assert.Equal(t, 3, execCtx.MaxRetryAttempts)
	assert.Equal(t, "WISH-7", execCtx.StoryID)
	assert.Equal(t, start, execCtx.StartTime)

	other := NewContext(ContextOptions{})
	assert.NotEqual(t, execCtx.TraceID, other.TraceID)
	assert.Equal(t, 1, other.MaxRetryAttempts)
}

func TestNewContextKeepsSuppliedIdentifiers(t *testing.T) {
	execCtx := NewContext(ContextOptions{TraceID: "trace-1", GraphExecutionID: "graph-1", ParentNodeID: "parent"})

	assert.Equal(t, "trace-1", execCtx.TraceID)
	assert.Equal(t, "graph-1", execCtx.GraphExecutionID)
	assert.Equal(t, "parent", execCtx.ParentNodeID)
}

func TestTracerAttachesBoundContext(t *testing.T) {
	logger, buf := newCapture()
	tracer := NewTracer("gap-analysis", logger, nil)

	tracer.Info(context.Background(), "unbound")

	bound := tracer.Bind(domain.NodeExecutionContext{
		TraceID:          "trace-1",
		GraphExecutionID: "graph-1",
		RetryAttempt:     2,
		MaxRetryAttempts: 3,
		ParentNodeID:     "parent",
	})
	bound.Debug(context.Background(), "bound")

	recs := records(t, buf)
	require.Len(t, recs, 2)

	assert.Equal(t, "gap-analysis", recs[0]["node_name"])
	assert.NotContains(t, recs[0], "trace_id")

	assert.Equal(t, "gap-analysis", recs[1]["node_name"])
	assert.Equal(t, "trace-1", recs[1]["trace_id"])
	assert.Equal(t, "graph-1", recs[1]["graph_execution_id"])
	assert.Equal(t, "parent", recs[1]["parent_node_id"])
	assert.EqualValues(t, 2, recs[1]["retry_attempt"])
	assert.EqualValues(t, 3, recs[1]["max_retry_attempts"])
	assert.NotContains(t, recs[1], "story_id")

	_, ok := tracer.ExecutionContext()
	assert.False(t, ok, "Bind must not modify the receiver")
}

func TestTracerLogExitSeverity(t *testing.T) {
	logger, buf := newCapture()
	tracer := NewTracer("n", logger, nil)

	tracer.LogExit(context.Background(), true, time.Second)
	tracer.LogExit(context.Background(), false, time.Second)

	recs := records(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "INFO", recs[0]["level"])
	assert.Equal(t, "WARN", recs[1]["level"])
	assert.Equal(t, false, recs[1]["success"])
}

func TestTracerLogErrorAndRetry(t *testing.T) {
	logger, buf := newCapture()
	tracer := NewTracer("n", logger, nil)

	tracer.LogError(context.Background(), &domain.TimeoutError{NodeName: "n", Timeout: time.Second})
	tracer.LogRetry(context.Background(), 1, errors.New("flaky"), 200*time.Millisecond)
	tracer.LogEntry(context.Background())
	tracer.Warn(context.Background(), "careful")

	recs := records(t, buf)
	require.Len(t, recs, 4)
	assert.Equal(t, "ERROR", recs[0]["level"])
	assert.Equal(t, domain.CodeTimeout, recs[0]["error_code"])
	assert.Equal(t, "flaky", recs[1]["error"])
	assert.EqualValues(t, 1, recs[1]["attempt"])
	assert.Equal(t, "node execution started", recs[2]["msg"])
	assert.Equal(t, "careful", recs[3]["msg"])
}

func TestTracerAttemptSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tracer := NewTracer("story-gen", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), provider).
		Bind(domain.NodeExecutionContext{TraceID: "trace-1", GraphExecutionID: "graph-1", RetryAttempt: 1, MaxRetryAttempts: 2, StoryID: "WISH-1"})

	ctx, span := tracer.StartAttempt(context.Background())
	execCtx, ok := domain.GetExecutionContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "trace-1", execCtx.TraceID)
	tracer.EndAttempt(span, errors.New("boom"))

	_, span = tracer.StartAttempt(context.Background())
	tracer.EndAttempt(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, SpanAttempt, spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	assert.Contains(t, spans[0].Attributes, attribute.String(AttrNodeName, "story-gen"))
	assert.Contains(t, spans[0].Attributes, attribute.String(AttrStoryID, "WISH-1"))
	assert.Contains(t, spans[0].Attributes, attribute.Int(AttrRetryAttempt, 1))
	assert.Contains(t, spans[0].Attributes, attribute.String(AttrErrorCode, "Error"))
	assert.Len(t, spans[0].Events, 1)

	assert.Equal(t, codes.Ok, spans[1].Status.Code)
}
