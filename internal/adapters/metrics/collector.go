package metrics

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
	"github.com/eleven-am/noderun/internal/xjson"
)

const DefaultWindowSize = 100

type FailureRateCallback func(nodeName string, rate float64)

type LatencyCallback func(nodeName string, p99 time.Duration)

type Config struct {
	WindowSize           int                 `json:"window_size" yaml:"window_size"`
	FailureRateThreshold *float64            `json:"failure_rate_threshold,omitempty" yaml:"failure_rate_threshold,omitempty"`
	LatencyThreshold     *time.Duration      `json:"latency_threshold,omitempty" yaml:"latency_threshold,omitempty"`
	OnFailureRate        FailureRateCallback `json:"-" yaml:"-"`
	OnLatency            LatencyCallback     `json:"-" yaml:"-"`
}

func (c Config) Validate() error {
	if c.WindowSize < 0 {
		return domain.NewConfigError("metrics", "window_size", "windowSize must be non-negative")
	}
	if c.FailureRateThreshold != nil && (*c.FailureRateThreshold < 0 || *c.FailureRateThreshold > 1) {
		return domain.NewConfigError("metrics", "failure_rate_threshold", "failureRateThreshold must be between 0 and 1")
	}
	if c.LatencyThreshold != nil && *c.LatencyThreshold < 0 {
		return domain.NewConfigError("metrics", "latency_threshold", "latencyThresholdMs must be non-negative")
	}
	return nil
}

type NodeMetrics struct {
	TotalExecutions  int64          `json:"total_executions"`
	SuccessCount     int64          `json:"success_count"`
	FailureCount     int64          `json:"failure_count"`
	RetryCount       int64          `json:"retry_count"`
	RejectedCount    int64          `json:"rejected_count"`
	LastExecution    *time.Duration `json:"last_execution,omitempty"`
	AvgExecution     time.Duration  `json:"avg_execution"`
	P50              *time.Duration `json:"p50,omitempty"`
	P90              *time.Duration `json:"p90,omitempty"`
	P99              *time.Duration `json:"p99,omitempty"`
	TimeoutErrors    int64          `json:"timeout_errors"`
	ValidationErrors int64          `json:"validation_errors"`
	NetworkErrors    int64          `json:"network_errors"`
	OtherErrors      int64          `json:"other_errors"`
}

type nodeState struct {
	totalExecutions  int64
	successCount     int64
	failureCount     int64
	retryCount       int64
	rejectedCount    int64
	lastExecution    *time.Duration
	totalDuration    time.Duration
	timeoutErrors    int64
	validationErrors int64
	networkErrors    int64
	otherErrors      int64
	window           *rollingWindow
}

// Collector aggregates attempt records per node. It is shared by every node
// of a runner and is safe for concurrent use.
type Collector struct {
	config Config
	logger *slog.Logger

	mu    sync.RWMutex
	nodes map[string]*nodeState
}

func NewCollector(config Config, logger *slog.Logger) *Collector {
	if config.WindowSize <= 0 {
		config.WindowSize = DefaultWindowSize
	}
	return &Collector{
		config: config,
		logger: ports.ComponentLogger(logger, "metrics-collector"),
		nodes:  make(map[string]*nodeState),
	}
}

func (c *Collector) RecordAttempt(record domain.AttemptRecord) {
	switch record.Outcome {
	case domain.OutcomeSuccess:
		c.RecordSuccess(record.NodeName, record.Duration)
	case domain.OutcomeRejected:
		c.RecordRejected(record.NodeName)
	case domain.OutcomeTimeout:
		category := record.Category
		if category == "" {
			category = domain.CategoryTimeout
		}
		c.RecordFailure(record.NodeName, record.Duration, category)
	default:
		c.RecordFailure(record.NodeName, record.Duration, record.Category)
	}
}

func (c *Collector) RecordSuccess(nodeName string, duration time.Duration) {
	duration = c.clamp(nodeName, duration)

	c.mu.Lock()
	state := c.stateFor(nodeName)
	state.totalExecutions++
	state.successCount++
	state.observe(duration)
	c.mu.Unlock()

	c.checkThresholds(nodeName)
}

func (c *Collector) RecordFailure(nodeName string, duration time.Duration, category domain.ErrorCategory) {
	duration = c.clamp(nodeName, duration)

	c.mu.Lock()
	state := c.stateFor(nodeName)
	state.totalExecutions++
	state.failureCount++
	switch category {
	case domain.CategoryTimeout:
		state.timeoutErrors++
	case domain.CategoryValidation:
		state.validationErrors++
	case domain.CategoryNetwork:
		state.networkErrors++
	default:
		state.otherErrors++
	}
	state.observe(duration)
	c.mu.Unlock()

	c.checkThresholds(nodeName)
}

func (c *Collector) RecordRetry(nodeName string, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateFor(nodeName).retryCount++
}

// RecordRejected counts invocations refused by an open circuit breaker.
// They are not executions and do not affect rates or latencies.
func (c *Collector) RecordRejected(nodeName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateFor(nodeName).rejectedCount++
}

// NodeMetrics returns zero metrics for a node that has never been recorded.
func (c *Collector) NodeMetrics(nodeName string) NodeMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.nodes[nodeName]
	if !ok {
		return NodeMetrics{}
	}
	return state.snapshot()
}

func (c *Collector) AllNodeMetrics() map[string]NodeMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]NodeMetrics, len(c.nodes))
	for name, state := range c.nodes {
		out[name] = state.snapshot()
	}
	return out
}

func (c *Collector) NodeNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.nodes))
	for name := range c.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears the named nodes, or every node when called without names.
func (c *Collector) Reset(nodeNames ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(nodeNames) == 0 {
		c.nodes = make(map[string]*nodeState)
		return
	}
	for _, name := range nodeNames {
		delete(c.nodes, name)
	}
}

func (c *Collector) ToJSON() ([]byte, error) {
	return xjson.Marshal(c.AllNodeMetrics())
}

func (c *Collector) stateFor(nodeName string) *nodeState {
	state, ok := c.nodes[nodeName]
	if !ok {
		state = &nodeState{window: newRollingWindow(c.config.WindowSize)}
		c.nodes[nodeName] = state
	}
	return state
}

func (c *Collector) clamp(nodeName string, d time.Duration) time.Duration {
	if d < 0 {
		c.logger.Warn("negative duration recorded, clamping to zero",
			ports.FieldNodeName, nodeName,
			ports.FieldDuration, d)
		return 0
	}
	return d
}

func (c *Collector) checkThresholds(nodeName string) {
	c.mu.RLock()
	state, ok := c.nodes[nodeName]
	if !ok {
		c.mu.RUnlock()
		return
	}
	var rate float64
	if state.totalExecutions > 0 {
		rate = float64(state.failureCount) / float64(state.totalExecutions)
	}
	p99, hasP99 := state.window.percentile(99)
	c.mu.RUnlock()

	if c.config.FailureRateThreshold != nil && c.config.OnFailureRate != nil && rate > *c.config.FailureRateThreshold {
		c.guard(nodeName, "failure rate", func() { c.config.OnFailureRate(nodeName, rate) })
	}
	if c.config.LatencyThreshold != nil && c.config.OnLatency != nil && hasP99 && p99 > *c.config.LatencyThreshold {
		c.guard(nodeName, "latency", func() { c.config.OnLatency(nodeName, p99) })
	}
}

func (c *Collector) guard(nodeName, callback string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("threshold callback panicked",
				ports.FieldNodeName, nodeName,
				"callback", callback,
				"panic", r)
		}
	}()
	fn()
}

func (s *nodeState) observe(d time.Duration) {
	last := d
	s.lastExecution = &last
	s.totalDuration += d
	s.window.add(d)
}

func (s *nodeState) snapshot() NodeMetrics {
	m := NodeMetrics{
		TotalExecutions:  s.totalExecutions,
		SuccessCount:     s.successCount,
		FailureCount:     s.failureCount,
		RetryCount:       s.retryCount,
		RejectedCount:    s.rejectedCount,
		TimeoutErrors:    s.timeoutErrors,
		ValidationErrors: s.validationErrors,
		NetworkErrors:    s.networkErrors,
		OtherErrors:      s.otherErrors,
	}
	if s.lastExecution != nil {
		last := *s.lastExecution
		m.LastExecution = &last
	}
	if s.totalExecutions > 0 {
		m.AvgExecution = s.totalDuration / time.Duration(s.totalExecutions)
	}
	if s.window.count() > 0 {
		m.P50 = percentilePtr(s.window, 50)
		m.P90 = percentilePtr(s.window, 90)
		m.P99 = percentilePtr(s.window, 99)
	}
	return m
}

func percentilePtr(w *rollingWindow, p float64) *time.Duration {
	v, ok := w.percentile(p)
	if !ok {
		return nil
	}
	return &v
}

var _ ports.MetricsSink = (*Collector)(nil)
