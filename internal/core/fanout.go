package core

import (
	"context"

	"github.com/eleven-am/noderun/internal/domain"
	"golang.org/x/sync/errgroup"
)

// FanOut runs nodes concurrently against the same state and merges their
// updates in argument order, independent of completion order.
func FanOut(ctx context.Context, state domain.GraphState, nodes ...Node) domain.StateUpdate {
	return FanOutLimit(ctx, state, -1, nodes...)
}

// FanOutLimit is FanOut with at most limit nodes running at once. A limit
// of zero or less means no limit.
func FanOutLimit(ctx context.Context, state domain.GraphState, limit int, nodes ...Node) domain.StateUpdate {
	if len(nodes) == 0 {
		return domain.StateUpdate{}
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	updates := make([]domain.StateUpdate, len(nodes))
	for i, n := range nodes {
		if n == nil {
			continue
		}
		g.Go(func() error {
			updates[i] = n(ctx, state)
			return nil
		})
	}
	_ = g.Wait()

	return domain.MergeStateUpdates(updates...)
}
