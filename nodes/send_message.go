package nodes

import (
	"context"
	"iter"

	"github.com/flowmesh/agentgraph/core/parse"
	"github.com/flowmesh/agentgraph/graph"
)

func init() {
	graph.Register("send_message", newSendMessage)
}

// SendMessage emits a fixed message as a content chunk, attaching
// whatever arrives on handle_send_extra as that same chunk's Extras
// payload (NodeSendMessage.py) before yielding a plain end event with
// the message text. A string extras value that looks like JSON is
// decoded via core/parse's jsonrepair-backed recovery instead of a bare
// json.Unmarshal, matching the source's forgiving json.loads-or-wrap
// behavior.
type SendMessage struct {
	*graph.Base
	message string
}

func newSendMessage(id string, data map[string]any) (graph.Node, error) {
	message, _ := data["message"].(string)
	return &SendMessage{Base: graph.NewBase(id, "send_message", false), message: message}, nil
}

func (n *SendMessage) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *SendMessage) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		var extras map[string]any
		if raw, ok := n.Input(graph.HandleSendExtra); ok {
			switch v := raw.(type) {
			case string:
				if decoded, err := parse.ParseStringAs[map[string]any](v); err == nil {
					extras = decoded
				} else {
					extras = map[string]any{"text": v}
				}
			case map[string]any:
				extras = v
			}
		}

		content := graph.NewEvent(n.ID(), graph.SourceTypeContent, n.message)
		content.Extras = extras
		if !yield(content, nil) {
			return
		}
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, n.message), nil)
	}
}
