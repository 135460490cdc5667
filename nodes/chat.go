package nodes

import (
	"context"
	"iter"

	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/providers/ai"
)

func init() {
	graph.Register("chat", newChat)
}

// ChatState is the conversation record a chat node assembles and an llm
// node consumes: an optional system prompt plus the accumulated message
// history, the Go analogue of NodeChat.py's ModelChat object.
type ChatState struct {
	SystemPrompt string
	Messages     []ai.Message
}

// Chat folds its three wired inputs (handle-system-context,
// handle_user_message, and an upstream handle-chat for continuing an
// existing conversation) into a ChatState (NodeChat.py: HANDLE_SYSTEM_CONTEXT
// / HANDLE_USER_MESSAGE / HANDLE_MESSAGES update a running ModelChat).
type Chat struct {
	*graph.Base
	seededMessage string
}

func newChat(id string, _ map[string]any) (graph.Node, error) {
	return &Chat{Base: graph.NewBase(id, "chat", false)}, nil
}

// SeedMessage satisfies the compiler's entrySeeder contract (§4.1
// operation 3): a chat node can serve as a flow's entry point in its
// own right, without a separate wired user_input node, so the compiler
// seeds it the same way. A wired handle_user_message input still takes
// precedence in process, matching NodeChat.py reading from self.parents
// rather than from the chat turn directly.
func (n *Chat) SeedMessage(message string, _, _ []graph.Attachment) {
	n.seededMessage = message
}

func (n *Chat) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *Chat) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		state := ChatState{}

		if prior, ok := n.Input(graph.HandleChat); ok {
			if ps, ok := prior.(ChatState); ok {
				state = ps
			}
		}
		if sys, ok := n.Input(graph.HandleSystemContext); ok {
			if s, ok := sys.(string); ok && s != "" {
				state.SystemPrompt = s
			}
		}
		message := n.seededMessage
		if msg, ok := n.Input(graph.HandleUserMessage); ok {
			if s, ok := msg.(string); ok && s != "" {
				message = s
			}
		}
		if message != "" {
			state.Messages = append(state.Messages, ai.Message{Role: ai.RoleUser, Content: message})
		}

		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, state), nil)
	}
}
