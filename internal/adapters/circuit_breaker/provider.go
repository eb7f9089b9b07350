package circuit_breaker

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
)

// Provider is the breaker registry owned by a single runner. Breakers are
// created lazily on first use and live until the provider is discarded.
type Provider struct {
	mu       sync.RWMutex
	breakers map[string]ports.CircuitBreaker
	clock    ports.Clock
	listener ports.StateChangeListener
	logger   *slog.Logger
}

func NewProvider(logger *slog.Logger, clock ports.Clock, listener ports.StateChangeListener) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = ports.SystemClock()
	}

	return &Provider{
		breakers: make(map[string]ports.CircuitBreaker),
		clock:    clock,
		listener: listener,
		logger:   logger,
	}
}

// Get returns the breaker for name, creating it with config if absent. The
// config of an existing breaker is never replaced.
func (p *Provider) Get(name string, config domain.CircuitBreakerConfig) ports.CircuitBreaker {
	p.mu.RLock()
	breaker, exists := p.breakers[name]
	p.mu.RUnlock()
	if exists {
		return breaker
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, exists := p.breakers[name]; exists {
		return existing
	}

	breaker = NewCircuitBreaker(name, config,
		WithClock(p.clock),
		WithListener(p.listener),
		WithLogger(p.logger),
	)
	p.breakers[name] = breaker

	p.logger.Debug("created circuit breaker",
		ports.FieldComponent, "circuit-breaker-provider",
		ports.FieldNodeName, name,
		"failure_threshold", config.FailureThreshold,
		"recovery_timeout", config.RecoveryTimeout)

	return breaker
}

func (p *Provider) Lookup(name string) (ports.CircuitBreaker, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	breaker, ok := p.breakers[name]
	return breaker, ok
}

func (p *Provider) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.breakers))
	for name := range p.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Provider) Status() map[string]ports.CircuitBreakerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := make(map[string]ports.CircuitBreakerStatus, len(p.breakers))
	for name, breaker := range p.breakers {
		status[name] = breaker.Status()
	}
	return status
}

func (p *Provider) Reset(name string) bool {
	breaker, ok := p.Lookup(name)
	if !ok {
		return false
	}
	breaker.Reset()
	return true
}

func (p *Provider) ResetAll() {
	p.mu.RLock()
	breakers := make([]ports.CircuitBreaker, 0, len(p.breakers))
	for _, breaker := range p.breakers {
		breakers = append(breakers, breaker)
	}
	p.mu.RUnlock()

	for _, breaker := range breakers {
		breaker.Reset()
	}
}

var _ ports.CircuitBreakerProvider = (*Provider)(nil)
