// Package noderun runs the nodes of a workflow graph with bounded retries,
// per-node circuit breaking, attempt timeouts, tracing and mergeable state
// updates.
//
// A node never returns runtime failures to its caller. Failures are recorded
// as NodeErrors on the returned StateUpdate, and a node that exhausted its
// retries also sets the blocked routing flag:
//
//	runner := noderun.New(noderun.WithLogger(logger))
//	node, err := runner.CreateLLMNode("story-gen", func(ctx context.Context, state noderun.GraphState) (*noderun.StateUpdate, error) {
//	    path, err := generate(ctx, state.StoryID)
//	    if err != nil {
//	        return nil, err
//	    }
//	    update := noderun.CreateCompleteUpdate(state, map[noderun.ArtifactType]string{noderun.ArtifactStoryDoc: path})
//	    return &update, nil
//	})
//	update := node(ctx, state)
//
// Only configuration mistakes are reported as errors, at construction time.
package noderun

import (
	"context"

	"github.com/eleven-am/noderun/internal/adapters/tracing"
	"github.com/eleven-am/noderun/internal/core"
	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
)

// Runner creates nodes and owns their circuit breakers. Separate runners
// never share breaker state.
type Runner = core.Runner

type Option = core.Option

// Node runs one invocation against the given state and returns the update
// to merge into it.
type Node = core.Node

// NodeFunc is the body of a node. It must return a non-nil update or an
// error; wrap errors with Permanent to stop retrying.
type NodeFunc = core.NodeFunc

type NodeConfig = domain.NodeConfig

type RetryConfig = domain.RetryConfig

type CircuitBreakerConfig = domain.CircuitBreakerConfig

type StackConfig = domain.StackConfig

type Preset = domain.Preset

const (
	PresetDefault    = domain.PresetDefault
	PresetLLM        = domain.PresetLLM
	PresetTool       = domain.PresetTool
	PresetValidation = domain.PresetValidation
)

type TimeoutHook = domain.TimeoutHook

type RetryHook = domain.RetryHook

type NodeExecutionContext = domain.NodeExecutionContext

type ContextOptions = tracing.ContextOptions

type CircuitState = domain.CircuitState

const (
	CircuitClosed   = domain.CircuitClosed
	CircuitHalfOpen = domain.CircuitHalfOpen
	CircuitOpen     = domain.CircuitOpen
)

type CircuitBreakerStatus = ports.CircuitBreakerStatus

type StateChangeListener = ports.StateChangeListener

type StateChangeFunc = ports.StateChangeFunc

type MetricsSink = domain.MetricsSink

type AttemptRecord = domain.AttemptRecord

type Clock = ports.Clock

func New(opts ...Option) *Runner {
	return core.NewRunner(opts...)
}

var (
	WithLogger              = core.WithLogger
	WithClock               = core.WithClock
	WithMetrics             = core.WithMetrics
	WithTracerProvider      = core.WithTracerProvider
	WithStateChangeListener = core.WithStateChangeListener
	WithStackConfig         = core.WithStackConfig
	WithRand                = core.WithRand
)

// MustCreateNode panics if cfg is invalid. It is meant for graph
// construction code where an invalid config is a programming error.
func MustCreateNode(r *Runner, cfg NodeConfig, fn NodeFunc) Node {
	node, err := r.CreateNode(cfg, fn)
	if err != nil {
		panic(err)
	}
	return node
}

// FanOut runs nodes concurrently and merges their updates in argument order.
func FanOut(ctx context.Context, state GraphState, nodes ...Node) StateUpdate {
	return core.FanOut(ctx, state, nodes...)
}

func FanOutLimit(ctx context.Context, state GraphState, limit int, nodes ...Node) StateUpdate {
	return core.FanOutLimit(ctx, state, limit, nodes...)
}

func NewNodeConfig(cfg NodeConfig) (NodeConfig, error) {
	return domain.NewNodeConfig(cfg)
}

func DefaultRetryConfig() RetryConfig {
	return domain.DefaultRetryConfig()
}

func LLMRetryConfig() RetryConfig {
	return domain.LLMRetryConfig()
}

func ToolRetryConfig() RetryConfig {
	return domain.ToolRetryConfig()
}

func ValidationRetryConfig() RetryConfig {
	return domain.ValidationRetryConfig()
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return domain.DefaultCircuitBreakerConfig()
}

func DefaultStackConfig() StackConfig {
	return domain.DefaultStackConfig()
}

// NewExecutionContext builds a context for a graph run. Attach it with
// WithExecutionContext so every node invoked under ctx shares its trace.
func NewExecutionContext(opts ContextOptions) NodeExecutionContext {
	return tracing.NewContext(opts)
}

func WithExecutionContext(ctx context.Context, execCtx NodeExecutionContext) context.Context {
	return domain.WithExecutionContext(ctx, execCtx)
}

// ExecutionContext returns the context of the attempt running under ctx.
func ExecutionContext(ctx context.Context) (NodeExecutionContext, bool) {
	return domain.GetExecutionContext(ctx)
}
