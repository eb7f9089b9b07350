package tracing

import (
	"context"
	"log/slog"
	"time"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	InstrumentationName = "github.com/eleven-am/noderun"
	SpanAttempt         = "noderun.attempt"

	AttrNodeName         = "noderun.node.name"
	AttrTraceID          = "noderun.trace_id"
	AttrGraphExecutionID = "noderun.graph_execution_id"
	AttrParentNodeID     = "noderun.parent_node_id"
	AttrStoryID          = "noderun.story_id"
	AttrRetryAttempt     = "noderun.retry_attempt"
	AttrMaxRetryAttempts = "noderun.max_retry_attempts"
	AttrErrorCode        = "error.code"
)

// Tracer emits structured records and spans for one node. A Tracer is
// immutable; Bind returns a copy carrying the execution context.
type Tracer struct {
	nodeName string
	logger   *slog.Logger
	tracer   trace.Tracer
	execCtx  *domain.NodeExecutionContext
}

func NewTracer(nodeName string, logger *slog.Logger, provider trace.TracerProvider) *Tracer {
	if provider == nil {
		provider = noop.NewTracerProvider()
	}
	return &Tracer{
		nodeName: nodeName,
		logger:   ports.ComponentLogger(logger, "node-runner").With(ports.FieldNodeName, nodeName),
		tracer:   provider.Tracer(InstrumentationName),
	}
}

func (t *Tracer) Bind(execCtx domain.NodeExecutionContext) *Tracer {
	bound := *t
	bound.execCtx = &execCtx
	return &bound
}

func (t *Tracer) ExecutionContext() (domain.NodeExecutionContext, bool) {
	if t.execCtx == nil {
		return domain.NodeExecutionContext{}, false
	}
	return *t.execCtx, true
}

func (t *Tracer) NodeName() string {
	return t.nodeName
}

func (t *Tracer) LogEntry(ctx context.Context, args ...any) {
	t.log(ctx, slog.LevelInfo, "node execution started", args...)
}

// LogExit logs at warn level when the invocation was unsuccessful.
func (t *Tracer) LogExit(ctx context.Context, success bool, duration time.Duration, args ...any) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	args = append([]any{ports.FieldSuccess, success, ports.FieldDuration, duration}, args...)
	t.log(ctx, level, "node execution finished", args...)
}

func (t *Tracer) LogError(ctx context.Context, err error, args ...any) {
	normalized := domain.NormalizeError(err)
	args = append([]any{ports.FieldError, normalized.Message, ports.FieldErrorCode, normalized.Name}, args...)
	t.log(ctx, slog.LevelError, "node execution failed", args...)
}

func (t *Tracer) LogRetry(ctx context.Context, attempt int, err error, delay time.Duration) {
	t.log(ctx, slog.LevelWarn, "node attempt failed, retrying",
		"attempt", attempt,
		ports.FieldError, domain.NormalizeError(err).Message,
		ports.FieldDelay, delay)
}

func (t *Tracer) Debug(ctx context.Context, msg string, args ...any) {
	t.log(ctx, slog.LevelDebug, msg, args...)
}

func (t *Tracer) Info(ctx context.Context, msg string, args ...any) {
	t.log(ctx, slog.LevelInfo, msg, args...)
}

func (t *Tracer) Warn(ctx context.Context, msg string, args ...any) {
	t.log(ctx, slog.LevelWarn, msg, args...)
}

// StartAttempt opens the span covering a single attempt. The returned
// context carries both the span and the bound execution context.
func (t *Tracer) StartAttempt(ctx context.Context) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String(AttrNodeName, t.nodeName)}
	if t.execCtx != nil {
		ec := t.execCtx
		attrs = append(attrs,
			attribute.String(AttrTraceID, ec.TraceID),
			attribute.String(AttrGraphExecutionID, ec.GraphExecutionID),
			attribute.Int(AttrRetryAttempt, ec.RetryAttempt),
			attribute.Int(AttrMaxRetryAttempts, ec.MaxRetryAttempts),
		)
		if ec.ParentNodeID != "" {
			attrs = append(attrs, attribute.String(AttrParentNodeID, ec.ParentNodeID))
		}
		if ec.StoryID != "" {
			attrs = append(attrs, attribute.String(AttrStoryID, ec.StoryID))
		}
		ctx = domain.WithExecutionContext(ctx, *ec)
	}

	return t.tracer.Start(ctx, SpanAttempt,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

func (t *Tracer) EndAttempt(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorCode, domain.NormalizeError(err).Name))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (t *Tracer) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !t.logger.Enabled(ctx, level) {
		return
	}
	t.logger.Log(ctx, level, msg, append(t.contextArgs(), args...)...)
}

func (t *Tracer) contextArgs() []any {
	if t.execCtx == nil {
		return nil
	}

	ec := t.execCtx
	args := []any{
		ports.FieldTraceID, ec.TraceID,
		ports.FieldGraphExecutionID, ec.GraphExecutionID,
		ports.FieldRetryAttempt, ec.RetryAttempt,
		ports.FieldMaxRetryAttempts, ec.MaxRetryAttempts,
	}
	if ec.ParentNodeID != "" {
		args = append(args, ports.FieldParentNodeID, ec.ParentNodeID)
	}
	if ec.StoryID != "" {
		args = append(args, ports.FieldStoryID, ec.StoryID)
	}
	return args
}
