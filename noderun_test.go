package noderun_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eleven-am/noderun"
	"github.com/eleven-am/noderun/internal/testutil/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunner(opts ...noderun.Option) (*noderun.Runner, *clock.Fake) {
	fake := clock.NewFake(time.Time{})
	base := []noderun.Option{
		noderun.WithLogger(quietLogger()),
		noderun.WithClock(fake),
		noderun.WithRand(func() float64 { return 0.5 }),
	}
	return noderun.New(append(base, opts...)...), fake
}

func TestNodeCompletes(t *testing.T) {
	runner, _ := newRunner()
	state := noderun.NewGraphState("wish", "WISH-1")

	node, err := runner.CreateSimpleNode("story-gen", func(_ context.Context, state noderun.GraphState) (*noderun.StateUpdate, error) {
		update := noderun.CreateCompleteUpdate(state, map[noderun.ArtifactType]string{
			noderun.ArtifactStoryDoc: "plans/WISH-1/story.md",
		})
		return &update, nil
	})
	require.NoError(t, err)

	update := node(context.Background(), state)
	assert.True(t, update.RoutingFlags[noderun.FlagComplete])
	assert.Equal(t, "plans/WISH-1/story.md", update.ArtifactPaths[noderun.ArtifactStoryDoc])
	assert.Empty(t, update.Errors)
}

func TestNodeExhaustsRetriesAndBlocks(t *testing.T) {
	runner, fake := newRunner()
	retry := noderun.DefaultRetryConfig()
	retry.MaxAttempts = 3
	retry.Backoff = 100 * time.Millisecond
	retry.JitterFactor = 0

	var calls atomic.Int32
	node, err := runner.CreateNode(noderun.NodeConfig{Name: "gap-analysis", Retry: &retry}, func(context.Context, noderun.GraphState) (*noderun.StateUpdate, error) {
		calls.Add(1)
		return nil, errors.New("upstream unavailable")
	})
	require.NoError(t, err)

	update := node(context.Background(), noderun.NewGraphState("wish", "WISH-2"))

	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, fake.Waits())
	assert.True(t, update.RoutingFlags[noderun.FlagBlocked])
	require.Len(t, update.Errors, 1)
	assert.Equal(t, "gap-analysis", update.Errors[0].NodeID)
	assert.Contains(t, update.Errors[0].Message, "upstream unavailable")
	assert.False(t, update.Errors[0].Recoverable)
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	runner, _ := newRunner()

	var calls atomic.Int32
	node, err := runner.CreateToolNode("lint", func(context.Context, noderun.GraphState) (*noderun.StateUpdate, error) {
		calls.Add(1)
		return nil, noderun.Permanent(errors.New("bad input"))
	})
	require.NoError(t, err)

	update := node(context.Background(), noderun.NewGraphState("wish", "WISH-3"))
	assert.EqualValues(t, 1, calls.Load())
	assert.True(t, update.RoutingFlags[noderun.FlagBlocked])
}

func TestInvalidConfigIsReported(t *testing.T) {
	runner, _ := newRunner()

	_, err := runner.CreateNode(noderun.NodeConfig{Name: " "}, func(context.Context, noderun.GraphState) (*noderun.StateUpdate, error) {
		return nil, nil
	})
	assert.True(t, noderun.IsInvalidConfig(err))
	assert.ErrorIs(t, err, noderun.ErrInvalidConfig)

	assert.Panics(t, func() {
		noderun.MustCreateNode(runner, noderun.NodeConfig{Name: "missing-body"}, nil)
	})
}

func TestCircuitOpenIsRecoverable(t *testing.T) {
	runner, _ := newRunner()
	retry := noderun.ValidationRetryConfig()

	node := noderun.MustCreateNode(runner, noderun.NodeConfig{
		Name:           "qa-verify",
		Retry:          &retry,
		CircuitBreaker: &noderun.CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute},
	}, func(context.Context, noderun.GraphState) (*noderun.StateUpdate, error) {
		return nil, errors.New("flaky")
	})

	state := noderun.NewGraphState("wish", "WISH-4")
	first := node(context.Background(), state)
	require.True(t, first.RoutingFlags[noderun.FlagBlocked])

	second := node(context.Background(), state)
	require.Len(t, second.Errors, 1)
	assert.Equal(t, noderun.CodeCircuitOpen, second.Errors[0].Code)
	assert.True(t, second.Errors[0].Recoverable)
	assert.False(t, second.RoutingFlags[noderun.FlagBlocked])

	assert.Equal(t, noderun.CircuitOpen, runner.BreakerStatus()["qa-verify"].State)
	assert.True(t, runner.ResetBreaker("qa-verify"))
	assert.Equal(t, noderun.CircuitClosed, runner.BreakerStatus()["qa-verify"].State)
}

func TestFanOutMergesInOrder(t *testing.T) {
	runner, _ := newRunner()

	artifact := func(name string, kind noderun.ArtifactType, path string) noderun.Node {
		return noderun.MustCreateNode(runner, noderun.NodeConfig{Name: name}, func(context.Context, noderun.GraphState) (*noderun.StateUpdate, error) {
			return &noderun.StateUpdate{
				ArtifactPaths: map[noderun.ArtifactType]string{kind: path},
				RoutingFlags:  map[noderun.RoutingFlag]bool{noderun.FlagProceed: name == "review"},
			}, nil
		})
	}

	update := noderun.FanOut(context.Background(), noderun.NewGraphState("wish", "WISH-5"),
		artifact("review", noderun.ArtifactCodeReview, "review.md"),
		artifact("uiux", noderun.ArtifactUIUXReview, "uiux.md"),
	)

	assert.Equal(t, map[noderun.ArtifactType]string{
		noderun.ArtifactCodeReview: "review.md",
		noderun.ArtifactUIUXReview: "uiux.md",
	}, update.ArtifactPaths)
	assert.False(t, update.RoutingFlags[noderun.FlagProceed], "later update wins")
}

func TestExecutionContextIsShared(t *testing.T) {
	runner, _ := newRunner()
	execCtx := noderun.NewExecutionContext(noderun.ContextOptions{TraceID: "trace-42"})
	ctx := noderun.WithExecutionContext(context.Background(), execCtx)

	var seen noderun.NodeExecutionContext
	node := noderun.MustCreateNode(runner, noderun.NodeConfig{Name: "proof"}, func(ctx context.Context, state noderun.GraphState) (*noderun.StateUpdate, error) {
		seen, _ = noderun.ExecutionContext(ctx)
		return &noderun.StateUpdate{}, nil
	})

	node(ctx, noderun.NewGraphState("wish", "WISH-6"))
	assert.Equal(t, "trace-42", seen.TraceID)
	assert.Equal(t, execCtx.GraphExecutionID, seen.GraphExecutionID)
	assert.Equal(t, "WISH-6", seen.StoryID)
	assert.Equal(t, 1, seen.RetryAttempt)
}

func TestStateHelpers(t *testing.T) {
	state := noderun.NewGraphState("wish", "WISH-7")

	blocked, err := noderun.CreateBlockedUpdate(state, "qa-gate", errors.New("gate failed"), noderun.WithCode("GATE_FAILED"))
	require.NoError(t, err)
	require.Len(t, blocked.Errors, 1)
	assert.Equal(t, "GATE_FAILED", blocked.Errors[0].Code)

	merged := noderun.MergeStateUpdates(
		noderun.StateUpdate{GateDecisions: map[noderun.GateType]noderun.GateDecision{noderun.GateQAGate: noderun.DecisionPending}},
		blocked,
		noderun.StateUpdate{GateDecisions: map[noderun.GateType]noderun.GateDecision{noderun.GateQAGate: noderun.DecisionFail}},
	)
	assert.Equal(t, noderun.DecisionFail, merged.GateDecisions[noderun.GateQAGate])
	assert.True(t, merged.RoutingFlags[noderun.FlagBlocked])
	assert.Len(t, merged.Errors, 1)

	normalized := noderun.NormalizeError("plain string")
	assert.Equal(t, "plain string", normalized.Message)
}
