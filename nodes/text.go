package nodes

import (
	"context"
	"iter"

	"github.com/flowmesh/agentgraph/graph"
)

func init() {
	graph.Register("text", newText)
}

// Text emits a fixed string configured at build time (NodeText.py).
// The spec's JSON is the source of truth: "text" takes priority over a
// "content" alias, matching TextNodeModel's resolution.
type Text struct {
	*graph.Base
	text string
}

func newText(id string, data map[string]any) (graph.Node, error) {
	text, _ := data["text"].(string)
	if text == "" {
		if c, ok := data["content"].(string); ok {
			text = c
		}
	}
	return &Text{Base: graph.NewBase(id, "text", false), text: text}, nil
}

func (n *Text) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *Text) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, n.text), nil)
	}
}
