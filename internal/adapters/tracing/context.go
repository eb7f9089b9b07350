package tracing

import (
	"time"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type ContextOptions struct {
	TraceID          string
	GraphExecutionID string
	ParentNodeID     string
	StoryID          string
	MaxRetryAttempts int
	StartTime        time.Time
}

// NewContext builds the execution context for the first attempt of a node
// invocation, generating any identifier the caller did not supply.
func NewContext(opts ContextOptions) domain.NodeExecutionContext {
	start := opts.StartTime
	if start.IsZero() {
		start = time.Now()
	}

	traceID := opts.TraceID
	if traceID == "" {
		traceID = NewTraceID()
	}

	graphExecutionID := opts.GraphExecutionID
	if graphExecutionID == "" {
		graphExecutionID = NewGraphExecutionID(start)
	}

	maxAttempts := opts.MaxRetryAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return domain.NodeExecutionContext{
		TraceID:          traceID,
		GraphExecutionID: graphExecutionID,
		RetryAttempt:     1,
		MaxRetryAttempts: maxAttempts,
		ParentNodeID:     opts.ParentNodeID,
		StartTime:        start,
		StoryID:          opts.StoryID,
	}
}

func NewTraceID() string {
	return uuid.New().String()
}

// NewGraphExecutionID returns a ULID so graph executions sort by start time.
func NewGraphExecutionID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}
