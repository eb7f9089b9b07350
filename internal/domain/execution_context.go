package domain

import (
	"context"
	"time"
)

type contextKey string

const ExecutionContextKey contextKey = "noderun:execution_context"

// NodeExecutionContext is an immutable per-attempt snapshot. A new value is
// derived for every attempt; existing values are never modified.
type NodeExecutionContext struct {
	TraceID          string    `json:"trace_id"`
	GraphExecutionID string    `json:"graph_execution_id"`
	RetryAttempt     int       `json:"retry_attempt"`
	MaxRetryAttempts int       `json:"max_retry_attempts"`
	ParentNodeID     string    `json:"parent_node_id,omitempty"`
	StartTime        time.Time `json:"start_time"`
	StoryID          string    `json:"story_id,omitempty"`
}

func (c NodeExecutionContext) NextAttempt() NodeExecutionContext {
	next := c
	next.RetryAttempt++
	return next
}

func (c NodeExecutionContext) IsLastAttempt() bool {
	return c.RetryAttempt >= c.MaxRetryAttempts
}

func WithExecutionContext(ctx context.Context, execCtx NodeExecutionContext) context.Context {
	return context.WithValue(ctx, ExecutionContextKey, execCtx)
}

func GetExecutionContext(ctx context.Context) (NodeExecutionContext, bool) {
	execCtx, ok := ctx.Value(ExecutionContextKey).(NodeExecutionContext)
	return execCtx, ok
}
