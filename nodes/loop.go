package nodes

import (
	"context"
	"iter"

	"github.com/flowmesh/agentgraph/graph"
)

func init() {
	graph.Register("loop", newLoop)
}

// Loop holds a loop node's configuration. The executor dispatches
// loop-typed nodes to its own driver (graph.runLoop) rather than
// calling Run — Loop's Run exists only to satisfy the Node interface
// and simply replays whatever the driver last stamped via SetOutput
// (NodeLoop.py's process loop; §4.5).
type Loop struct {
	*graph.Base
	maxIterations int
}

func newLoop(id string, data map[string]any) (graph.Node, error) {
	max := 0
	switch v := data["max_iterations"].(type) {
	case int:
		max = v
	case float64:
		max = int(v)
	}
	return &Loop{Base: graph.NewBase(id, "loop", false), maxIterations: max}, nil
}

// MaxIterations satisfies graph's loopConfig contract. A value <= 0
// means "use the default bound" (§4.5 Configuration).
func (n *Loop) MaxIterations() int { return n.maxIterations }

func (n *Loop) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *Loop) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		outputs := n.Outputs()
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, outputs[graph.SourceTypeEnd]), nil)
	}
}
