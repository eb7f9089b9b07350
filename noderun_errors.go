package noderun

import "github.com/eleven-am/noderun/internal/domain"

var (
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrInvalidNodeError   = domain.ErrInvalidNodeError
	ErrCircuitOpen        = domain.ErrCircuitOpen
	ErrNodeTimeout        = domain.ErrNodeTimeout
	ErrRetriesExhausted   = domain.ErrRetriesExhausted
	ErrNonRetryable       = domain.ErrNonRetryable
	ErrCancelled          = domain.ErrCancelled
	ErrMissingStateUpdate = domain.ErrMissingStateUpdate
)

const (
	CodeCircuitOpen      = domain.CodeCircuitOpen
	CodeTimeout          = domain.CodeTimeout
	CodeRetriesExhausted = domain.CodeRetriesExhausted
	CodeCancelled        = domain.CodeCancelled
	CodeValidation       = domain.CodeValidation
	CodePanic            = domain.CodePanic
	CodeUnknown          = domain.CodeUnknown
)

type ConfigError = domain.ConfigError

type ValidationError = domain.ValidationError

type ExecutionError = domain.ExecutionError

type TimeoutError = domain.TimeoutError

type PanicError = domain.PanicError

type NormalizedError = domain.NormalizedError

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return domain.Permanent(err)
}

func NormalizeError(v interface{}) NormalizedError {
	return domain.NormalizeError(v)
}

func SanitizeStack(stack string, cfg StackConfig) string {
	return domain.SanitizeStack(stack, cfg)
}

func IsInvalidConfig(err error) bool {
	return domain.IsInvalidConfig(err)
}

func IsCircuitOpen(err error) bool {
	return domain.IsCircuitOpen(err)
}

func IsTimeout(err error) bool {
	return domain.IsTimeout(err)
}

func IsRetriesExhausted(err error) bool {
	return domain.IsRetriesExhausted(err)
}

func IsValidation(err error) bool {
	return domain.IsValidation(err)
}

func IsRetryable(err error) bool {
	return domain.IsRetryable(err)
}
