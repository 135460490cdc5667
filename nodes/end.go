package nodes

import (
	"context"
	"iter"

	"github.com/flowmesh/agentgraph/graph"
)

func init() {
	graph.Register("end", newEnd)
}

// End is a terminal marker node: it carries forward whatever arrives on
// its single input and re-emits it as the graph's end event
// (NodeEND.py, which wraps an empty ChatCompletionModel; here the
// upstream payload is forwarded so a chain ending in an explicit "end"
// node observably matches a chain rewritten through the sink).
type End struct {
	*graph.Base
}

func newEnd(id string, _ map[string]any) (graph.Node, error) {
	return &End{Base: graph.NewBase(id, "end", false)}, nil
}

func (n *End) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *End) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, n.Inputs()), nil)
	}
}
