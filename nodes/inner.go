package nodes

import (
	"context"
	"iter"

	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/graph/errs"
)

func init() {
	graph.Register("inner", newInner)
}

// Inner drives a fully compiled nested graph to completion and folds
// its streamed output back into this node's own two outputs
// (NodeInner.py forwards every inner event verbatim as a "content"
// chunk; here, per the redesigned contract, the inner run's content is
// aggregated into one string and its structured extras collected into
// a list, §4.7).
type Inner struct {
	*graph.Base
	subgraph *graph.Graph
}

func newInner(id string, _ map[string]any) (graph.Node, error) {
	return &Inner{Base: graph.NewBase(id, "inner", false)}, nil
}

// AttachSubgraph satisfies the compiler's innerHost contract (§4.1
// operation 5): the nested spec is compiled once at build time and
// handed back here.
func (n *Inner) AttachSubgraph(g *graph.Graph) { n.subgraph = g }

func (n *Inner) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, func(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
		return n.process(ctx, chatLog)
	}, chatLog)
}

func (n *Inner) process(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		raw, ok := n.Input(graph.HandleUserMessage)
		if !ok {
			yield(graph.Event{}, &errs.InputError{NodeID: n.ID(), Key: graph.HandleUserMessage})
			return
		}
		message, _ := raw.(string)
		if n.subgraph == nil {
			yield(graph.Event{}, &errs.ConfigError{NodeID: n.ID(), Message: "inner node has no compiled nested graph"})
			return
		}

		resetSubgraph(n.subgraph)

		if master, ok := n.subgraph.Nodes[n.subgraph.Master]; ok {
			if seeder, ok := master.(interface {
				SeedMessage(message string, attachments, images []graph.Attachment)
			}); ok {
				seeder.SeedMessage(message, nil, nil)
			}
		}

		nested := &graph.ChatLog{
			ChatID:      chatLog.ChatID,
			ThreadID:    chatLog.ThreadID,
			UserID:      chatLog.UserID,
			Message:     message,
			Debug:       chatLog.Debug,
			DebugConfig: chatLog.DebugConfig,
		}

		var content string
		var extras []map[string]any
		for msg, err := range graph.Execute(ctx, n.subgraph, nested) {
			if err != nil {
				yield(graph.Event{}, err)
				return
			}
			if msg.Type != graph.MessageContent {
				continue
			}
			chunk, ok := msg.Content.(graph.ChatCompletionChunk)
			if !ok {
				continue
			}
			if len(chunk.Choices) > 0 {
				content += chunk.Choices[0].Delta.Content
			}
			if len(chunk.Extras) > 0 {
				extras = append(extras, chunk.Extras)
			}
		}

		if !yield(graph.NewEvent(n.ID(), graph.HandleExecutionContent, content), nil) {
			return
		}
		if len(extras) > 0 {
			if !yield(graph.NewEvent(n.ID(), graph.HandleExecutionExtras, extras), nil) {
				return
			}
		}
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, content), nil)
	}
}

// resetSubgraph clears every node's terminal-event cache before a fresh
// Execute over the nested graph. The subgraph's Node instances (and
// edges) persist across repeated Inner invocations — compiled once,
// per AttachSubgraph's contract — so without this an inner node itself
// flagged iterate=true would re-run its master node's RunCached short
// circuit and keep replaying the first iteration's cached content,
// ignoring every later SeedMessage. graph/loop.go's resetIterationRound
// only clears caches for iterate-flagged nodes because it resets one
// round within a single host Execute; this resets all of them because
// each Inner.Run is its own independent nested Execute.
func resetSubgraph(g *graph.Graph) {
	for _, nd := range g.Nodes {
		nd.ResetCache()
	}
}
