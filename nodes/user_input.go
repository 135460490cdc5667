package nodes

import (
	"context"
	"iter"

	"github.com/flowmesh/agentgraph/graph"
)

func init() {
	graph.Register("user_input", newUserInput)
}

// UserInput is the graph's entry node: it carries the chat turn's text
// and attachments and has no inputs of its own (NodeUserInput.py).
// Re-architected per §4.4 to emit three typed outputs instead of one,
// so downstream nodes can wire to message, files, or images
// independently (§6 built-in node tags).
type UserInput struct {
	*graph.Base
	message     string
	attachments []graph.Attachment
	images      []graph.Attachment
}

func newUserInput(id string, _ map[string]any) (graph.Node, error) {
	return &UserInput{Base: graph.NewBase(id, "user_input", false)}, nil
}

// SeedMessage satisfies the compiler's entrySeeder contract (§4.1
// operation 3): the initial chat message and attachments are injected
// here rather than read from spec data, since they come from the
// caller of Compile, not the graph JSON.
func (n *UserInput) SeedMessage(message string, attachments, images []graph.Attachment) {
	n.message = message
	n.attachments = attachments
	n.images = images
}

func (n *UserInput) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *UserInput) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		if !yield(graph.NewEvent(n.ID(), graph.HandleUserMessage, n.message), nil) {
			return
		}
		if len(n.attachments) > 0 {
			if !yield(graph.NewEvent(n.ID(), graph.HandleUserFiles, n.attachments), nil) {
				return
			}
		}
		if len(n.images) > 0 {
			if !yield(graph.NewEvent(n.ID(), graph.HandleUserImages, n.images), nil) {
				return
			}
		}
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, n.message), nil)
	}
}
