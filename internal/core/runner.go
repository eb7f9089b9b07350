package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	cb "github.com/eleven-am/noderun/internal/adapters/circuit_breaker"
	"github.com/eleven-am/noderun/internal/adapters/retry"
	"github.com/eleven-am/noderun/internal/adapters/tracing"
	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
	"go.opentelemetry.io/otel/trace"
)

// NodeFunc is a node body. Returning a nil update without an error is a
// failure of the node.
type NodeFunc func(ctx context.Context, state domain.GraphState) (*domain.StateUpdate, error)

// Node is a runnable node. It never returns runtime failures to the caller;
// they are reported through the returned update.
type Node func(ctx context.Context, state domain.GraphState) domain.StateUpdate

// Runner owns the circuit breakers of every node it creates. Runners are
// independent of each other.
type Runner struct {
	logger    *slog.Logger
	clock     ports.Clock
	metrics   ports.MetricsSink
	provider  trace.TracerProvider
	stack     domain.StackConfig
	rnd       func() float64
	listeners []ports.StateChangeListener
	breakers  *cb.Provider
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithClock(clock ports.Clock) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithMetrics sets the sink for nodes whose config does not name one.
func WithMetrics(sink ports.MetricsSink) Option {
	return func(r *Runner) {
		r.metrics = sink
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(r *Runner) {
		r.provider = provider
	}
}

// WithStateChangeListener may be given more than once; listeners are
// notified in registration order.
func WithStateChangeListener(listener ports.StateChangeListener) Option {
	return func(r *Runner) {
		if listener != nil {
			r.listeners = append(r.listeners, listener)
		}
	}
}

func WithStackConfig(cfg domain.StackConfig) Option {
	return func(r *Runner) {
		r.stack = cfg
	}
}

func WithRand(rnd func() float64) Option {
	return func(r *Runner) {
		r.rnd = rnd
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger: slog.Default(),
		clock:  ports.SystemClock(),
		stack:  domain.DefaultStackConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}

	var listener ports.StateChangeListener
	switch len(r.listeners) {
	case 0:
	case 1:
		listener = r.listeners[0]
	default:
		listeners := r.listeners
		listener = ports.StateChangeFunc(func(name string, from, to domain.CircuitState) {
			for _, l := range listeners {
				l.OnStateChange(name, from, to)
			}
		})
	}

	r.breakers = cb.NewProvider(r.logger, r.clock, listener)
	return r
}

type node struct {
	config   domain.NodeConfig
	fn       NodeFunc
	executor *retry.Executor
	tracer   *tracing.Tracer
}

// CreateNode validates cfg and returns the runnable node. Configuration
// errors are the only errors it reports; they wrap domain.ErrInvalidConfig.
// Nodes created with the same name share one circuit breaker.
func (r *Runner) CreateNode(cfg domain.NodeConfig, fn NodeFunc) (Node, error) {
	resolved, err := domain.NewNodeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, domain.NewConfigError("", "implementation", "node %s requires an implementation", resolved.Name)
	}

	tracer := tracing.NewTracer(resolved.Name, r.logger, r.provider)
	breaker := r.breakers.Get(resolved.Name, resolved.BreakerPolicy())

	n := &node{
		config: resolved,
		fn:     fn,
		tracer: tracer,
		executor: retry.NewExecutor(resolved, breaker,
			retry.WithClock(r.clock),
			retry.WithTracer(tracer),
			retry.WithMetrics(r.metrics),
			retry.WithRand(r.rnd),
		),
	}

	return func(ctx context.Context, state domain.GraphState) domain.StateUpdate {
		return r.run(ctx, n, state)
	}, nil
}

func (r *Runner) run(ctx context.Context, n *node, state domain.GraphState) domain.StateUpdate {
	if ctx == nil {
		ctx = context.Background()
	}
	name := n.config.Name

	execCtx := r.executionContext(ctx, n, state)
	tracer := n.tracer.Bind(execCtx)
	tracer.LogEntry(ctx)

	res, err := retry.Do(withNodeName(ctx, name), n.executor, execCtx, func(ctx context.Context) (domain.StateUpdate, error) {
		update, err := n.fn(ctx, state)
		if err != nil {
			return domain.StateUpdate{}, err
		}
		if update == nil {
			return domain.StateUpdate{}, fmt.Errorf("%w: node %s must return a state update", domain.ErrMissingStateUpdate, name)
		}
		return *update, nil
	})

	tracer.LogExit(ctx, err == nil, res.Duration, "attempts", res.Attempts)
	if err == nil {
		return res.Value
	}
	return r.failureUpdate(ctx, tracer, n, state, err)
}

// failureUpdate turns a terminal executor outcome into the update recorded
// on the graph state. Refusals and cancellations are recoverable; every
// other outcome blocks the node.
func (r *Runner) failureUpdate(ctx context.Context, tracer *tracing.Tracer, n *node, state domain.GraphState, err error) domain.StateUpdate {
	name := n.config.Name
	opts := []domain.NodeErrorOption{domain.WithStackConfig(r.stack), domain.WithTimestamp(r.clock.Now())}

	var execErr *domain.ExecutionError
	if !errors.As(err, &execErr) {
		execErr = &domain.ExecutionError{NodeName: name, Class: domain.ClassNodeFailure, Err: err}
	}

	var (
		update domain.StateUpdate
		cerr   error
	)
	switch execErr.Class {
	case domain.ClassCircuitOpen, domain.ClassCancelled:
		opts = append(opts, domain.WithCode(execErr.Code()), domain.WithRecoverable(true))
		update, cerr = domain.CreateErrorUpdate(state, name, execErr, opts...)
	default:
		cause := execErr.Err
		if cause == nil {
			cause = execErr
		}
		update, cerr = domain.CreateBlockedUpdate(state, name, cause, opts...)
		if cerr != nil {
			tracer.Warn(ctx, "failure cause rejected as node error, recording execution error", ports.FieldError, cerr)
			update, cerr = domain.CreateBlockedUpdate(state, name, execErr, opts...)
		}
	}

	if cerr != nil {
		tracer.LogError(ctx, cerr, "class", string(execErr.Class))
		update = domain.StateUpdate{
			RoutingFlags: map[domain.RoutingFlag]bool{domain.FlagBlocked: true},
		}
	}
	return update
}

func (r *Runner) executionContext(ctx context.Context, n *node, state domain.GraphState) domain.NodeExecutionContext {
	opts := tracing.ContextOptions{
		StoryID:          state.StoryID,
		MaxRetryAttempts: n.config.RetryPolicy().MaxAttempts,
		StartTime:        r.clock.Now(),
	}
	if parent, ok := domain.GetExecutionContext(ctx); ok {
		opts.TraceID = parent.TraceID
		opts.GraphExecutionID = parent.GraphExecutionID
		opts.ParentNodeID = parent.ParentNodeID
		if opts.StoryID == "" {
			opts.StoryID = parent.StoryID
		}
	}
	if parentName, ok := nodeNameFrom(ctx); ok {
		opts.ParentNodeID = parentName
	}
	return tracing.NewContext(opts)
}

func (r *Runner) BreakerStatus() map[string]ports.CircuitBreakerStatus {
	return r.breakers.Status()
}

// ResetBreaker reports whether a breaker named name exists.
func (r *Runner) ResetBreaker(name string) bool {
	return r.breakers.Reset(name)
}

func (r *Runner) ResetBreakers() {
	r.breakers.ResetAll()
}

func (r *Runner) BreakerNames() []string {
	return r.breakers.Names()
}

type nodeNameKey struct{}

func withNodeName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, nodeNameKey{}, name)
}

func nodeNameFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(nodeNameKey{}).(string)
	return name, ok && name != ""
}
