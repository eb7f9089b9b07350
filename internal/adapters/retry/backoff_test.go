package retry

import (
	"testing"
	"time"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/stretchr/testify/assert"
)

func fixed(v float64) func() float64 {
	return func() float64 { return v }
}

func TestDelayGrowsGeometrically(t *testing.T) {
	cfg := domain.RetryConfig{
		MaxAttempts:       5,
		Backoff:           100 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxBackoff:        time.Minute,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Delay(cfg, tt.attempt, fixed(0.9)), "attempt %d", tt.attempt)
	}
}

func TestDelayIsCapped(t *testing.T) {
	cfg := domain.RetryConfig{
		Backoff:           time.Second,
		BackoffMultiplier: 10,
		MaxBackoff:        5 * time.Second,
	}

	assert.Equal(t, time.Second, Delay(cfg, 1, nil))
	assert.Equal(t, 5*time.Second, Delay(cfg, 2, nil))
	assert.Equal(t, 5*time.Second, Delay(cfg, 60, nil))
}

func TestDelayZeroMaxBackoff(t *testing.T) {
	cfg := domain.RetryConfig{Backoff: time.Second, BackoffMultiplier: 2}
	assert.Zero(t, Delay(cfg, 3, fixed(0.5)))
}

func TestDelayJitterBounds(t *testing.T) {
	cfg := domain.RetryConfig{
		Backoff:           100 * time.Millisecond,
		BackoffMultiplier: 1,
		MaxBackoff:        time.Second,
		JitterFactor:      0.25,
	}

	assert.Equal(t, 75*time.Millisecond, Delay(cfg, 1, fixed(0)))
	assert.Equal(t, 100*time.Millisecond, Delay(cfg, 1, fixed(0.5)))

	for _, r := range []float64{0, 0.1, 0.33, 0.5, 0.77, 0.999999} {
		d := Delay(cfg, 1, fixed(r))
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}

func TestDelayJitterAppliesAfterCap(t *testing.T) {
	cfg := domain.RetryConfig{
		Backoff:           time.Second,
		BackoffMultiplier: 4,
		MaxBackoff:        2 * time.Second,
		JitterFactor:      0.5,
	}

	assert.Equal(t, time.Second, Delay(cfg, 3, fixed(0)))
}

func TestDelayHugeExponentSaturates(t *testing.T) {
	cfg := domain.RetryConfig{
		Backoff:           time.Second,
		BackoffMultiplier: 1e6,
		MaxBackoff:        time.Duration(1<<62),
	}

	assert.Equal(t, time.Duration(1<<62), Delay(cfg, 40, nil))
}
