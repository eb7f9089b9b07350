package ports

import "log/slog"

const (
	FieldComponent        = "component"
	FieldNodeName         = "node_name"
	FieldTraceID          = "trace_id"
	FieldGraphExecutionID = "graph_execution_id"
	FieldParentNodeID     = "parent_node_id"
	FieldRetryAttempt     = "retry_attempt"
	FieldMaxRetryAttempts = "max_retry_attempts"
	FieldStoryID          = "story_id"
	FieldDuration         = "duration"
	FieldError            = "error"
	FieldErrorCode        = "error_code"
	FieldDelay            = "delay"
	FieldState            = "state"
	FieldSuccess          = "success"
)

// ComponentLogger scopes logger to a component, falling back to the default
// logger when none is supplied.
func ComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(FieldComponent, component)
}
