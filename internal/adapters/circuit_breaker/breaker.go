package circuit_breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
)

type circuitBreaker struct {
	name     string
	config   domain.CircuitBreakerConfig
	clock    ports.Clock
	listener ports.StateChangeListener
	logger   *slog.Logger

	mu              sync.Mutex
	state           domain.CircuitState
	failureCount    int
	lastFailureTime time.Time
}

type Option func(*circuitBreaker)

func WithClock(clock ports.Clock) Option {
	return func(cb *circuitBreaker) {
		if clock != nil {
			cb.clock = clock
		}
	}
}

func WithListener(listener ports.StateChangeListener) Option {
	return func(cb *circuitBreaker) {
		cb.listener = listener
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cb *circuitBreaker) {
		if logger != nil {
			cb.logger = logger
		}
	}
}

// NewCircuitBreaker expects a validated config; see domain.NewNodeConfig.
func NewCircuitBreaker(name string, config domain.CircuitBreakerConfig, opts ...Option) ports.CircuitBreaker {
	cb := &circuitBreaker{
		name:   name,
		config: config,
		clock:  ports.SystemClock(),
		logger: slog.Default(),
		state:  domain.CircuitClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.logger = cb.logger.With(ports.FieldComponent, "circuit-breaker", ports.FieldNodeName, name)
	return cb
}

func (cb *circuitBreaker) Name() string {
	return cb.name
}

func (cb *circuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case domain.CircuitClosed, domain.CircuitHalfOpen:
		return true
	case domain.CircuitOpen:
		if cb.clock.Now().Sub(cb.lastFailureTime) >= cb.config.RecoveryTimeout {
			cb.setState(domain.CircuitHalfOpen)
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	if cb.state == domain.CircuitHalfOpen {
		cb.setState(domain.CircuitClosed)
	}
}

func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++

	switch cb.state {
	case domain.CircuitClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.lastFailureTime = cb.clock.Now()
			cb.setState(domain.CircuitOpen)
		}
	case domain.CircuitHalfOpen:
		cb.lastFailureTime = cb.clock.Now()
		cb.setState(domain.CircuitOpen)
	}
}

func (cb *circuitBreaker) State() domain.CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Status() ports.CircuitBreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := ports.CircuitBreakerStatus{
		Name:            cb.name,
		State:           cb.state,
		FailureCount:    cb.failureCount,
		LastFailureTime: cb.lastFailureTime,
	}
	if cb.state == domain.CircuitOpen {
		remaining := cb.config.RecoveryTimeout - cb.clock.Now().Sub(cb.lastFailureTime)
		status.TimeUntilRecovery = max(0, remaining)
	}
	return status
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.logger.Info("circuit breaker reset")
	cb.failureCount = 0
	cb.lastFailureTime = time.Time{}
	cb.setState(domain.CircuitClosed)
}

// setState must be called with mu held.
func (cb *circuitBreaker) setState(next domain.CircuitState) {
	prev := cb.state
	if prev == next {
		return
	}
	cb.state = next

	level := slog.LevelInfo
	if next == domain.CircuitOpen {
		level = slog.LevelWarn
	}
	cb.logger.Log(context.Background(), level, "circuit breaker state change",
		"from", prev.String(),
		"to", next.String(),
		"failure_count", cb.failureCount,
		"recovery_timeout", cb.config.RecoveryTimeout)

	cb.notify(prev, next)
}

func (cb *circuitBreaker) notify(prev, next domain.CircuitState) {
	if cb.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			cb.logger.Error("state change listener panicked", "panic", r)
		}
	}()
	cb.listener.OnStateChange(cb.name, prev, next)
}
