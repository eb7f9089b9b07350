package domain

import (
	"strings"
	"time"
)

type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts" yaml:"max_attempts"`
	Backoff           time.Duration `json:"backoff" yaml:"backoff"`
	BackoffMultiplier float64       `json:"backoff_multiplier" yaml:"backoff_multiplier"`
	MaxBackoff        time.Duration `json:"max_backoff" yaml:"max_backoff"`
	Timeout           time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	JitterFactor      float64       `json:"jitter_factor" yaml:"jitter_factor"`
}

func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return NewConfigError("retry", "max_attempts", "maxAttempts must be at least 1")
	}
	if c.Backoff < 0 {
		return NewConfigError("retry", "backoff", "backoffMs must be non-negative")
	}
	if c.BackoffMultiplier < 1 {
		return NewConfigError("retry", "backoff_multiplier", "backoffMultiplier must be at least 1")
	}
	if c.MaxBackoff < 0 {
		return NewConfigError("retry", "max_backoff", "maxBackoffMs must be non-negative")
	}
	if c.Timeout < 0 {
		return NewConfigError("retry", "timeout", "timeoutMs must be non-negative")
	}
	if c.JitterFactor < 0 || c.JitterFactor > 1 {
		return NewConfigError("retry", "jitter_factor", "jitterFactor must be between 0 and 1")
	}
	return nil
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold" yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `json:"recovery_timeout" yaml:"recovery_timeout"`
}

func (c CircuitBreakerConfig) Validate() error {
	if c.FailureThreshold < 1 {
		return NewConfigError("circuit breaker", "failure_threshold", "failureThreshold must be at least 1")
	}
	if c.RecoveryTimeout < 0 {
		return NewConfigError("circuit breaker", "recovery_timeout", "recoveryTimeoutMs must be non-negative")
	}
	return nil
}

// TimeoutHook is invoked when an attempt exceeds its timeout, before the
// attempt is recorded as failed.
type TimeoutHook func(nodeName string, execCtx NodeExecutionContext)

// RetryHook is invoked before waiting out the backoff delay of a retry.
type RetryHook func(attempt int, err error, delay time.Duration)

// NodeConfig is created once per node type. Use NewNodeConfig to obtain a
// validated copy with defaults resolved; the runner never mutates it.
type NodeConfig struct {
	Name           string
	Retry          *RetryConfig
	CircuitBreaker *CircuitBreakerConfig
	OnTimeout      TimeoutHook
	OnRetryAttempt RetryHook
	Metrics        MetricsSink
}

func NewNodeConfig(cfg NodeConfig) (NodeConfig, error) {
	resolved := cfg
	resolved.Name = strings.TrimSpace(cfg.Name)
	if resolved.Name == "" {
		return NodeConfig{}, NewConfigError("", "name", "Node name is required")
	}

	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	if err := retry.Validate(); err != nil {
		return NodeConfig{}, err
	}
	resolved.Retry = &retry

	breaker := DefaultCircuitBreakerConfig()
	if cfg.CircuitBreaker != nil {
		breaker = *cfg.CircuitBreaker
	}
	if err := breaker.Validate(); err != nil {
		return NodeConfig{}, err
	}
	resolved.CircuitBreaker = &breaker

	return resolved, nil
}

// RetryPolicy returns the effective retry configuration by value.
func (c NodeConfig) RetryPolicy() RetryConfig {
	if c.Retry == nil {
		return DefaultRetryConfig()
	}
	return *c.Retry
}

// BreakerPolicy returns the effective circuit breaker configuration by value.
func (c NodeConfig) BreakerPolicy() CircuitBreakerConfig {
	if c.CircuitBreaker == nil {
		return DefaultCircuitBreakerConfig()
	}
	return *c.CircuitBreaker
}

func (c NodeConfig) WithRetry(retry RetryConfig) NodeConfig {
	c.Retry = &retry
	return c
}

func (c NodeConfig) WithCircuitBreaker(breaker CircuitBreakerConfig) NodeConfig {
	c.CircuitBreaker = &breaker
	return c
}

func (c NodeConfig) WithMetrics(sink MetricsSink) NodeConfig {
	c.Metrics = sink
	return c
}
