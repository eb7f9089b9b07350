package domain

import (
	"context"
	"errors"
	"net"
	"time"
)

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitHalfOpen
	CircuitOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	case CircuitOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

func (s CircuitState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type AttemptOutcome string

const (
	OutcomeSuccess  AttemptOutcome = "success"
	OutcomeFailure  AttemptOutcome = "failure"
	OutcomeTimeout  AttemptOutcome = "timeout"
	OutcomeRejected AttemptOutcome = "rejected"
)

type ErrorCategory string

const (
	CategoryTimeout    ErrorCategory = "timeout"
	CategoryValidation ErrorCategory = "validation"
	CategoryNetwork    ErrorCategory = "network"
	CategoryOther      ErrorCategory = "other"
)

// AttemptRecord describes one invocation attempt (or refusal) of a node.
type AttemptRecord struct {
	NodeName     string         `json:"node_name"`
	Attempt      int            `json:"attempt"`
	Duration     time.Duration  `json:"duration"`
	Outcome      AttemptOutcome `json:"outcome"`
	Category     ErrorCategory  `json:"category,omitempty"`
	BreakerState CircuitState   `json:"breaker_state"`
	TraceID      string         `json:"trace_id,omitempty"`
}

// MetricsSink receives per-attempt observations. Implementations are shared
// across concurrently running nodes and must be safe for concurrent use.
type MetricsSink interface {
	RecordAttempt(record AttemptRecord)
	RecordRetry(nodeName string, attempt int)
}

func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNodeTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if IsValidation(err) {
		return CategoryValidation
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}
	return CategoryOther
}
