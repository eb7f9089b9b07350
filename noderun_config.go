package noderun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	grpcadapter "github.com/eleven-am/noderun/internal/adapters/grpc"
	"github.com/eleven-am/noderun/internal/adapters/metrics"
	"github.com/eleven-am/noderun/internal/adapters/observability"
	"github.com/eleven-am/noderun/internal/adapters/shutdown"
	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type MetricsConfig = metrics.Config

type MetricsCollector = metrics.Collector

type NodeMetrics = metrics.NodeMetrics

type ObservabilityConfig = observability.Config

type ObservabilityServer = observability.Server

type HealthReporter = grpcadapter.HealthReporter

type HealthServerConfig = grpcadapter.ServerConfig

type HealthServer = grpcadapter.HealthServer

// CodeDraining is recorded on invocations refused during shutdown.
const CodeDraining = shutdown.CodeDraining

var ErrDraining = shutdown.ErrDraining

const DefaultHealthServicePrefix = grpcadapter.DefaultServicePrefix

// RetrySpec overrides individual fields of a preset retry policy. Durations
// are written as Go duration strings such as "250ms" or "1m".
type RetrySpec struct {
	MaxAttempts       *int           `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	Backoff           *time.Duration `json:"backoff,omitempty" yaml:"backoff,omitempty"`
	BackoffMultiplier *float64       `json:"backoff_multiplier,omitempty" yaml:"backoff_multiplier,omitempty"`
	MaxBackoff        *time.Duration `json:"max_backoff,omitempty" yaml:"max_backoff,omitempty"`
	Timeout           *time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	JitterFactor      *float64       `json:"jitter_factor,omitempty" yaml:"jitter_factor,omitempty"`
}

type CircuitBreakerSpec struct {
	FailureThreshold *int           `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	RecoveryTimeout  *time.Duration `json:"recovery_timeout,omitempty" yaml:"recovery_timeout,omitempty"`
}

// NodeSpec is the file form of a NodeConfig. Explicit fields override the
// values of the named preset.
type NodeSpec struct {
	Preset         Preset             `json:"preset,omitempty" yaml:"preset,omitempty"`
	Retry          RetrySpec          `json:"retry,omitempty" yaml:"retry,omitempty"`
	CircuitBreaker CircuitBreakerSpec `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// NodeConfig resolves the spec into a validated NodeConfig named name.
func (s NodeSpec) NodeConfig(name string) (NodeConfig, error) {
	retry, err := domain.RetryConfigForPreset(s.Preset)
	if err != nil {
		return NodeConfig{}, err
	}
	setIfPresent(&retry.MaxAttempts, s.Retry.MaxAttempts)
	setIfPresent(&retry.Backoff, s.Retry.Backoff)
	setIfPresent(&retry.BackoffMultiplier, s.Retry.BackoffMultiplier)
	setIfPresent(&retry.MaxBackoff, s.Retry.MaxBackoff)
	setIfPresent(&retry.Timeout, s.Retry.Timeout)
	setIfPresent(&retry.JitterFactor, s.Retry.JitterFactor)

	breaker := domain.DefaultCircuitBreakerConfig()
	setIfPresent(&breaker.FailureThreshold, s.CircuitBreaker.FailureThreshold)
	setIfPresent(&breaker.RecoveryTimeout, s.CircuitBreaker.RecoveryTimeout)

	return domain.NewNodeConfig(NodeConfig{
		Name:           name,
		Retry:          &retry,
		CircuitBreaker: &breaker,
	})
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

type RuntimeConfig struct {
	Nodes               map[string]NodeSpec `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Stack               StackConfig         `json:"stack" yaml:"stack"`
	Metrics             MetricsConfig       `json:"metrics" yaml:"metrics"`
	Observability       ObservabilityConfig `json:"observability" yaml:"observability"`
	HealthServer        HealthServerConfig  `json:"grpc_health" yaml:"grpc_health"`
	HealthServicePrefix string              `json:"health_service_prefix,omitempty" yaml:"health_service_prefix,omitempty"`
	DrainTimeout        time.Duration       `json:"drain_timeout" yaml:"drain_timeout"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Nodes:               map[string]NodeSpec{},
		Stack:               domain.DefaultStackConfig(),
		Metrics:             metrics.Config{WindowSize: metrics.DefaultWindowSize},
		Observability:       observability.DefaultConfig(),
		HealthServer:        grpcadapter.DefaultServerConfig(),
		HealthServicePrefix: DefaultHealthServicePrefix,
		DrainTimeout:        shutdown.DefaultDrainTimeout,
	}
}

func (c RuntimeConfig) Validate() error {
	if err := c.Stack.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	if err := c.HealthServer.Validate(); err != nil {
		return err
	}
	if c.DrainTimeout < 0 {
		return domain.NewConfigError("runtime", "drain_timeout", "drainTimeout must be non-negative")
	}
	for _, name := range c.NodeNames() {
		if _, err := c.Nodes[name].NodeConfig(name); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
	}
	return nil
}

// NodeNames returns the configured node names in sorted order.
func (c RuntimeConfig) NodeNames() []string {
	names := make([]string, 0, len(c.Nodes))
	for name := range c.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseConfig decodes YAML over DefaultRuntimeConfig and validates the
// result. Unknown keys are rejected.
func ParseConfig(data []byte) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return RuntimeConfig{}, fmt.Errorf("%w: decode yaml: %v", domain.ErrInvalidConfig, err)
	}
	if cfg.Nodes == nil {
		cfg.Nodes = map[string]NodeSpec{}
	}

	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Runtime is a Runner wired to a metrics collector, a gRPC health reporter
// and a shutdown drainer. When enabled it also serves the observability
// HTTP endpoints and the gRPC health service.
type Runtime struct {
	*Runner

	config  RuntimeConfig
	logger  *slog.Logger
	metrics *metrics.Collector
	health  *grpcadapter.HealthReporter
	drainer *shutdown.Drainer
	server  *observability.Server
	grpc    *grpcadapter.HealthServer
}

// NewFromConfig validates cfg and builds a Runtime. Options are applied
// after the runtime's own wiring, so they may replace the metrics sink or
// add further state change listeners.
func NewFromConfig(cfg RuntimeConfig, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	rt := &Runtime{
		config:  cfg,
		logger:  ports.ComponentLogger(logger, "runtime"),
		metrics: metrics.NewCollector(cfg.Metrics, logger),
		health:  grpcadapter.NewHealthReporter(cfg.HealthServicePrefix, logger),
		drainer: shutdown.NewDrainer(cfg.DrainTimeout, logger),
	}

	wiring := []Option{
		WithLogger(logger),
		WithStackConfig(cfg.Stack),
		WithMetrics(rt.metrics),
		WithStateChangeListener(rt.health),
	}
	rt.Runner = New(append(wiring, opts...)...)

	if cfg.Observability.Enabled {
		rt.server = observability.NewServer(cfg.Observability, rt.Runner, rt.metrics, logger)
		rt.server.SetDrainSource(rt.drainer)
	}
	if cfg.HealthServer.Enabled {
		rt.grpc = grpcadapter.NewHealthServer(cfg.HealthServer, rt.health, logger)
	}
	return rt, nil
}

// Node creates a node named name from its configured spec. Names without
// a spec get the default policies. Once Shutdown has begun the node records
// a recoverable DRAINING error instead of running.
func (rt *Runtime) Node(name string, fn NodeFunc) (Node, error) {
	cfg, err := rt.config.Nodes[name].NodeConfig(name)
	if err != nil {
		return nil, err
	}
	node, err := rt.CreateNode(cfg, fn)
	if err != nil {
		return nil, err
	}
	rt.health.Track(cfg.Name)

	return func(ctx context.Context, state GraphState) StateUpdate {
		done, ok := rt.drainer.Begin()
		if !ok {
			return rt.refuse(state, cfg.Name)
		}
		defer done()
		return node(ctx, state)
	}, nil
}

func (rt *Runtime) refuse(state GraphState, name string) StateUpdate {
	rt.logger.Warn("node invocation refused while draining", ports.FieldNodeName, name)
	update, err := domain.CreateErrorUpdate(state, name, shutdown.ErrDraining,
		domain.WithCode(shutdown.CodeDraining),
		domain.WithRecoverable(true),
		domain.WithStackConfig(rt.config.Stack))
	if err != nil {
		rt.logger.Error("failed to record draining refusal", ports.FieldNodeName, name, ports.FieldError, err)
		return StateUpdate{}
	}
	return update
}

func (rt *Runtime) Config() RuntimeConfig {
	return rt.config
}

func (rt *Runtime) Metrics() *MetricsCollector {
	return rt.metrics
}

func (rt *Runtime) Health() *HealthReporter {
	return rt.health
}

// Serve runs the enabled servers until ctx is cancelled or one of them
// fails. It returns nil at once when none is enabled.
func (rt *Runtime) Serve(ctx context.Context) error {
	if rt.server == nil && rt.grpc == nil {
		rt.logger.Debug("no servers enabled")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if rt.server != nil {
		g.Go(func() error { return rt.server.Start(gctx) })
	}
	if rt.grpc != nil {
		g.Go(func() error { return rt.grpc.Start(gctx) })
	}
	return g.Wait()
}

// Shutdown refuses new invocations, waits up to the drain timeout for the
// running ones and then marks every node as not serving. The health
// services are shut down even when draining times out.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	err := rt.drainer.InitiateGracefulShutdown(ctx)
	rt.health.Shutdown()
	return err
}

func (rt *Runtime) InFlight() int {
	return rt.drainer.InFlight()
}

func (rt *Runtime) Draining() bool {
	return rt.drainer.IsDraining()
}

func NewMetricsCollector(cfg MetricsConfig, logger *slog.Logger) *MetricsCollector {
	return metrics.NewCollector(cfg, logger)
}

func NewHealthReporter(prefix string, logger *slog.Logger) *HealthReporter {
	return grpcadapter.NewHealthReporter(prefix, logger)
}

func NewHealthServer(cfg HealthServerConfig, reporter *HealthReporter, logger *slog.Logger) *HealthServer {
	return grpcadapter.NewHealthServer(cfg, reporter, logger)
}

func NewObservabilityServer(cfg ObservabilityConfig, runner *Runner, collector *MetricsCollector, logger *slog.Logger) *ObservabilityServer {
	return observability.NewServer(cfg, runner, collector, logger)
}
