package domain

import (
	"strings"
	"time"
)

type Preset string

const (
	PresetDefault    Preset = "default"
	PresetLLM        Preset = "llm"
	PresetTool       Preset = "tool"
	PresetValidation Preset = "validation"
)

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		Backoff:           1000 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxBackoff:        30 * time.Second,
		JitterFactor:      0.25,
	}
}

// LLMRetryConfig suits long-running, expensive calls such as model requests.
func LLMRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 5
	cfg.Backoff = 2 * time.Second
	cfg.Timeout = 60 * time.Second
	return cfg
}

func ToolRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 2
	cfg.Backoff = 500 * time.Millisecond
	cfg.Timeout = 10 * time.Second
	return cfg
}

func ValidationRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 1
	cfg.Backoff = 0
	cfg.Timeout = 5 * time.Second
	return cfg
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

func DefaultStackConfig() StackConfig {
	return StackConfig{
		MaxLength:          2000,
		FilterDependencies: true,
	}
}

func RetryConfigForPreset(p Preset) (RetryConfig, error) {
	switch Preset(strings.ToLower(strings.TrimSpace(string(p)))) {
	case "", PresetDefault:
		return DefaultRetryConfig(), nil
	case PresetLLM:
		return LLMRetryConfig(), nil
	case PresetTool:
		return ToolRetryConfig(), nil
	case PresetValidation:
		return ValidationRetryConfig(), nil
	default:
		return RetryConfig{}, NewConfigError("retry", "preset", "unknown preset %q", p)
	}
}
