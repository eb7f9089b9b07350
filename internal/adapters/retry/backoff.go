package retry

import (
	"math"
	"time"

	"github.com/eleven-am/noderun/internal/domain"
)

// Delay returns the wait before the retry that follows the given 1-indexed
// attempt: min(MaxBackoff, Backoff*Multiplier^(attempt-1)), then scaled by a
// uniform factor in [1-JitterFactor, 1+JitterFactor] drawn from rnd. The
// result depends only on its arguments.
func Delay(cfg domain.RetryConfig, attempt int, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := float64(cfg.Backoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if base > float64(cfg.MaxBackoff) {
		base = float64(cfg.MaxBackoff)
	}

	if cfg.JitterFactor > 0 && rnd != nil {
		factor := 1 - cfg.JitterFactor + 2*cfg.JitterFactor*rnd()
		base *= factor
	}

	if base <= 0 || math.IsNaN(base) {
		return 0
	}
	if base >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(base)
}
