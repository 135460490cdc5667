package graph

import (
	"context"

	"github.com/flowmesh/agentgraph/providers/observability"
)

// observerState resolves the observability Provider to use for one
// execution, falling back to a context-carried provider when the
// caller did not pass one via ExecutorOption.
type observerState struct {
	provider observability.Provider
	rootSpan observability.Span
}

func resolveObserver(ctx context.Context, configured observability.Provider) observability.Provider {
	if configured != nil {
		return configured
	}
	return observability.ObserverFromContext(ctx)
}

func observeGraphStart(ctx context.Context, provider observability.Provider, g *Graph) (context.Context, *observerState) {
	if provider == nil {
		return ctx, &observerState{}
	}
	spanCtx, span := provider.StartSpan(ctx, observability.SpanGraphExecute,
		observability.String(observability.AttrGraphID, g.ID),
		observability.Int(observability.AttrGraphTotalNodes, len(g.Order)),
		observability.Int(observability.AttrGraphTotalEdges, len(g.Edges)),
		observability.String(observability.AttrGraphMasterNode, g.Master),
	)
	provider.Counter(observability.MetricGraphExecutionTotal).Add(spanCtx, 1)
	provider.Info(spanCtx, "graph execution started", observability.String(observability.AttrGraphID, g.ID))
	return spanCtx, &observerState{provider: provider, rootSpan: span}
}

func observeGraphEnd(ctx context.Context, state *observerState, executed, bypassed int) {
	if state == nil || state.provider == nil {
		return
	}
	state.provider.Counter(observability.MetricGraphNodesExecuted).Add(ctx, int64(executed))
	state.provider.Counter(observability.MetricGraphNodesBypassed).Add(ctx, int64(bypassed))
	state.provider.Info(ctx, "graph execution finished",
		observability.Int("graph.nodes_executed", executed),
		observability.Int("graph.nodes_bypassed", bypassed),
	)
	if state.rootSpan != nil {
		state.rootSpan.End()
	}
}
