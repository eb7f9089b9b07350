package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/eleven-am/noderun/internal/adapters/tracing"
	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
)

type Result[T any] struct {
	Value    T
	Attempts int
	Duration time.Duration
}

// Executor runs one node body with bounded retries behind that node's
// circuit breaker. It holds no per-invocation state and may be shared by
// concurrent invocations of the same node.
type Executor struct {
	config  domain.NodeConfig
	retry   domain.RetryConfig
	breaker ports.CircuitBreaker
	tracer  *tracing.Tracer
	clock   ports.Clock
	metrics ports.MetricsSink
	rnd     func() float64
}

type Option func(*Executor)

func WithClock(clock ports.Clock) Option {
	return func(e *Executor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithTracer(tracer *tracing.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithMetrics sets the sink used when the node config does not carry one.
func WithMetrics(sink ports.MetricsSink) Option {
	return func(e *Executor) {
		if sink != nil && e.metrics == nil {
			e.metrics = sink
		}
	}
}

// WithRand replaces the jitter source. rnd must return values in [0, 1).
func WithRand(rnd func() float64) Option {
	return func(e *Executor) {
		if rnd != nil {
			e.rnd = rnd
		}
	}
}

// NewExecutor expects config to have been produced by domain.NewNodeConfig.
func NewExecutor(config domain.NodeConfig, breaker ports.CircuitBreaker, opts ...Option) *Executor {
	e := &Executor{
		config:  config,
		retry:   config.RetryPolicy(),
		breaker: breaker,
		clock:   ports.SystemClock(),
		metrics: config.Metrics,
		rnd:     rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = tracing.NewTracer(config.Name, nil, nil)
	}
	if e.metrics == nil {
		e.metrics = ports.NoopMetricsSink{}
	}
	return e
}

func (e *Executor) Config() domain.NodeConfig {
	return e.config
}

func (e *Executor) Breaker() ports.CircuitBreaker {
	return e.breaker
}

type attemptOutcome[T any] struct {
	value T
	err   error
}

// Do runs fn until it succeeds, fails permanently, exhausts its attempts,
// the breaker refuses it, or ctx is cancelled. Every non-nil error returned
// is a *domain.ExecutionError.
func Do[T any](ctx context.Context, e *Executor, execCtx domain.NodeExecutionContext, fn func(ctx context.Context) (T, error)) (Result[T], error) {
	name := e.config.Name
	started := e.clock.Now()
	if execCtx.RetryAttempt < 1 {
		execCtx.RetryAttempt = 1
	}
	execCtx.MaxRetryAttempts = e.retry.MaxAttempts

	var (
		lastErr  error
		attempts int
	)

	for {
		tracer := e.tracer.Bind(execCtx)

		if err := ctx.Err(); err != nil {
			return failure[T](ctx, e, tracer, started, domain.ClassCancelled, attempts, context.Cause(ctx))
		}

		if !e.breaker.CanExecute() {
			e.metrics.RecordAttempt(domain.AttemptRecord{
				NodeName:     name,
				Attempt:      attempts + 1,
				Outcome:      domain.OutcomeRejected,
				BreakerState: e.breaker.State(),
				TraceID:      execCtx.TraceID,
			})
			tracer.Warn(ctx, "circuit breaker open, invocation refused",
				ports.FieldState, e.breaker.State().String(),
				"time_until_recovery", e.breaker.Status().TimeUntilRecovery)
			return failure[T](ctx, e, tracer, started, domain.ClassCircuitOpen, attempts, lastErr)
		}

		breakerState := e.breaker.State()
		attempts++
		attemptStart := e.clock.Now()

		value, err := runAttempt(ctx, e, tracer, execCtx, fn)
		duration := e.clock.Now().Sub(attemptStart)

		if err == nil {
			e.breaker.RecordSuccess()
			e.metrics.RecordAttempt(domain.AttemptRecord{
				NodeName:     name,
				Attempt:      attempts,
				Duration:     duration,
				Outcome:      domain.OutcomeSuccess,
				BreakerState: breakerState,
				TraceID:      execCtx.TraceID,
			})
			return Result[T]{Value: value, Attempts: attempts, Duration: e.clock.Now().Sub(started)}, nil
		}

		if ctx.Err() != nil && !domain.IsTimeout(err) {
			return failure[T](ctx, e, tracer, started, domain.ClassCancelled, attempts, err)
		}

		lastErr = err
		e.breaker.RecordFailure()

		outcome := domain.OutcomeFailure
		if domain.IsTimeout(err) {
			outcome = domain.OutcomeTimeout
		}
		e.metrics.RecordAttempt(domain.AttemptRecord{
			NodeName:     name,
			Attempt:      attempts,
			Duration:     duration,
			Outcome:      outcome,
			Category:     domain.CategorizeError(err),
			BreakerState: breakerState,
			TraceID:      execCtx.TraceID,
		})

		if !domain.IsRetryable(err) {
			return failure[T](ctx, e, tracer, started, domain.ClassNonRetryable, attempts, err)
		}
		if attempts >= e.retry.MaxAttempts {
			return failure[T](ctx, e, tracer, started, domain.ClassRetriesExhausted, attempts, err)
		}

		delay := Delay(e.retry, attempts, e.rnd)
		e.onRetryAttempt(ctx, tracer, attempts, err, delay)
		e.metrics.RecordRetry(name, attempts)
		tracer.LogRetry(ctx, attempts, err, delay)

		if delay > 0 {
			select {
			case <-ctx.Done():
				return failure[T](ctx, e, tracer, started, domain.ClassCancelled, attempts, context.Cause(ctx))
			case <-e.clock.After(delay):
			}
		}

		execCtx = execCtx.NextAttempt()
	}
}

// runAttempt runs fn in its own goroutine so a timeout can be reported
// without waiting for it. A result arriving after the timeout is dropped.
func runAttempt[T any](ctx context.Context, e *Executor, tracer *tracing.Tracer, execCtx domain.NodeExecutionContext, fn func(ctx context.Context) (T, error)) (T, error) {
	spanCtx, span := tracer.StartAttempt(ctx)

	var (
		attemptCtx context.Context
		cancel     context.CancelFunc
	)
	if e.retry.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(spanCtx, e.retry.Timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(spanCtx)
	}
	defer cancel()

	done := make(chan attemptOutcome[T], 1)
	go func() {
		var out attemptOutcome[T]
		defer func() {
			if r := recover(); r != nil {
				panicErr := domain.NewPanicError(e.config.Name, r)
				tracer.LogError(ctx, panicErr, "recovered_at", panicErr.RecoveredAt)
				out = attemptOutcome[T]{err: panicErr}
			}
			done <- out
		}()
		out.value, out.err = fn(attemptCtx)
	}()

	var zero T
	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err := e.timedOut(ctx, tracer, execCtx)
			tracer.EndAttempt(span, err)
			return zero, err
		}
		tracer.EndAttempt(span, out.err)
		if out.err != nil {
			return zero, out.err
		}
		return out.value, nil

	case <-attemptCtx.Done():
		var err error
		if ctx.Err() != nil {
			err = context.Cause(ctx)
		} else {
			err = e.timedOut(ctx, tracer, execCtx)
		}
		tracer.EndAttempt(span, err)
		return zero, err
	}
}

func (e *Executor) timedOut(ctx context.Context, tracer *tracing.Tracer, execCtx domain.NodeExecutionContext) error {
	err := &domain.TimeoutError{NodeName: e.config.Name, Timeout: e.retry.Timeout}
	tracer.Warn(ctx, "node attempt timed out", "timeout", e.retry.Timeout)

	if hook := e.config.OnTimeout; hook != nil {
		e.guard(ctx, tracer, "on_timeout", func() { hook(e.config.Name, execCtx) })
	}
	return err
}

func (e *Executor) onRetryAttempt(ctx context.Context, tracer *tracing.Tracer, attempt int, err error, delay time.Duration) {
	if hook := e.config.OnRetryAttempt; hook != nil {
		e.guard(ctx, tracer, "on_retry_attempt", func() { hook(attempt, err, delay) })
	}
}

// guard runs a user hook, logging and discarding any panic it raises.
func (e *Executor) guard(ctx context.Context, tracer *tracing.Tracer, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			tracer.Warn(ctx, "hook panicked", "hook", hook, "panic", r)
		}
	}()
	fn()
}

func failure[T any](ctx context.Context, e *Executor, tracer *tracing.Tracer, started time.Time, class domain.ErrorClass, attempts int, cause error) (Result[T], error) {
	err := &domain.ExecutionError{
		NodeName: e.config.Name,
		Class:    class,
		Attempts: attempts,
		Err:      cause,
	}

	switch class {
	case domain.ClassCircuitOpen, domain.ClassCancelled:
		tracer.Warn(ctx, "node execution stopped", "class", string(class), "attempts", attempts)
	default:
		tracer.LogError(ctx, err, "class", string(class), "attempts", attempts)
	}
	return Result[T]{Attempts: attempts, Duration: e.clock.Now().Sub(started)}, err
}
