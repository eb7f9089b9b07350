package domain

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidNodeError   = errors.New("invalid node error")
	ErrCircuitOpen        = errors.New("circuit breaker is open")
	ErrNodeTimeout        = errors.New("node execution timeout")
	ErrRetriesExhausted   = errors.New("retries exhausted")
	ErrNonRetryable       = errors.New("non-retryable failure")
	ErrCancelled          = errors.New("node execution cancelled")
	ErrMissingStateUpdate = errors.New("missing state update")
)

const (
	CodeCircuitOpen      = "CIRCUIT_OPEN"
	CodeTimeout          = "NODE_TIMEOUT"
	CodeRetriesExhausted = "RETRIES_EXHAUSTED"
	CodeCancelled        = "CANCELLED"
	CodeValidation       = "VALIDATION_ERROR"
	CodePanic            = "PANIC"
	CodeUnknown          = "UNKNOWN_ERROR"
)

type ErrorClass string

const (
	ClassCircuitOpen      ErrorClass = "circuit_open"
	ClassTimeout          ErrorClass = "timeout"
	ClassNodeFailure      ErrorClass = "node_failure"
	ClassRetriesExhausted ErrorClass = "retries_exhausted"
	ClassNonRetryable     ErrorClass = "non_retryable"
	ClassCancelled        ErrorClass = "cancelled"
	ClassConfiguration    ErrorClass = "configuration"
)

// ConfigError reports an invalid NodeConfig, RetryConfig or
// CircuitBreakerConfig. It is only ever produced at construction time.
type ConfigError struct {
	Scope   string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Scope == "" {
		return e.Message
	}
	return fmt.Sprintf("Invalid %s configuration: %s", e.Scope, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func NewConfigError(scope, field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		Scope:   scope,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

type ValidationError struct {
	Subject string
	Issues  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Subject, strings.Join(e.Issues, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidNodeError
}

func (e *ValidationError) Code() string {
	return CodeValidation
}

func (e *ValidationError) Retryable() bool {
	return false
}

// ExecutionError is the terminal outcome of a retry sequence that did not
// produce a result.
type ExecutionError struct {
	NodeName string
	Class    ErrorClass
	Attempts int
	Err      error
}

func (e *ExecutionError) Error() string {
	switch e.Class {
	case ClassCircuitOpen:
		return fmt.Sprintf("node %s: circuit breaker is open", e.NodeName)
	case ClassRetriesExhausted:
		return fmt.Sprintf("node %s: retries exhausted after %d attempts: %v", e.NodeName, e.Attempts, e.Err)
	case ClassCancelled:
		return fmt.Sprintf("node %s: cancelled after %d attempts: %v", e.NodeName, e.Attempts, e.Err)
	default:
		return fmt.Sprintf("node %s: %s after %d attempts: %v", e.NodeName, e.Class, e.Attempts, e.Err)
	}
}

func (e *ExecutionError) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Class {
	case ClassCircuitOpen:
		errs = append(errs, ErrCircuitOpen)
	case ClassRetriesExhausted:
		errs = append(errs, ErrRetriesExhausted)
	case ClassNonRetryable:
		errs = append(errs, ErrNonRetryable)
	case ClassCancelled:
		errs = append(errs, ErrCancelled)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Recoverable reports whether the workflow may simply invoke the node again
// later. Exhausted and non-retryable outcomes require intervention.
func (e *ExecutionError) Recoverable() bool {
	return e.Class == ClassCircuitOpen || e.Class == ClassCancelled
}

// Code is the NodeError code recorded for this outcome.
func (e *ExecutionError) Code() string {
	switch e.Class {
	case ClassCircuitOpen:
		return CodeCircuitOpen
	case ClassCancelled:
		return CodeCancelled
	}
	if e.Err != nil {
		return NormalizeError(e.Err).Name
	}
	return CodeRetriesExhausted
}

type TimeoutError struct {
	NodeName string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("node %s exceeded timeout of %s", e.NodeName, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrNodeTimeout
}

func (e *TimeoutError) Code() string {
	return CodeTimeout
}

type PanicError struct {
	NodeName    string
	PanicValue  interface{}
	Stack       string
	RecoveredAt string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeName, e.PanicValue)
}

func (e *PanicError) Code() string {
	return CodePanic
}

func (e *PanicError) StackTrace() string {
	return e.Stack
}

func NewPanicError(nodeName string, panicValue interface{}) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)

	recoveredAt := "unknown"
	if pc, file, line, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			recoveredAt = fmt.Sprintf("%s at %s:%d", fn.Name(), file, line)
		}
	}

	return &PanicError{
		NodeName:    nodeName,
		PanicValue:  panicValue,
		Stack:       string(buf[:n]),
		RecoveredAt: recoveredAt,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

func (e *permanentError) Retryable() bool {
	return false
}

// Permanent marks err so the retry executor stops after the current attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrNodeTimeout)
}

func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}

func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
