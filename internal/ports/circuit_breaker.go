package ports

import (
	"time"

	"github.com/eleven-am/noderun/internal/domain"
)

type CircuitBreakerStatus struct {
	Name              string              `json:"name"`
	State             domain.CircuitState `json:"state"`
	FailureCount      int                 `json:"failure_count"`
	LastFailureTime   time.Time           `json:"last_failure_time"`
	TimeUntilRecovery time.Duration       `json:"time_until_recovery"`
}

// CircuitBreaker guards a single node. CanExecute may move an OPEN breaker
// to HALF_OPEN once the recovery timeout has elapsed; nothing else does.
type CircuitBreaker interface {
	Name() string
	CanExecute() bool
	RecordSuccess()
	RecordFailure()
	State() domain.CircuitState
	Status() CircuitBreakerStatus
	Reset()
}

// CircuitBreakerProvider owns one breaker per node name.
type CircuitBreakerProvider interface {
	Get(name string, config domain.CircuitBreakerConfig) CircuitBreaker
	Lookup(name string) (CircuitBreaker, bool)
	Status() map[string]CircuitBreakerStatus
	Reset(name string) bool
	ResetAll()
}

// StateChangeListener is notified synchronously on every breaker transition
// while the breaker lock is held; it must not call back into the breaker.
type StateChangeListener interface {
	OnStateChange(name string, from, to domain.CircuitState)
}

type StateChangeFunc func(name string, from, to domain.CircuitState)

func (f StateChangeFunc) OnStateChange(name string, from, to domain.CircuitState) {
	f(name, from, to)
}
