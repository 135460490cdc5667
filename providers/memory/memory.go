package memory

import (
	"context"

	"github.com/flowmesh/agentgraph/providers/ai"
)

// Provider is the conversation-history contract shared by all memory backends.
type Provider interface {
	AppendMessage(ctx context.Context, message *ai.Message)
	Count(ctx context.Context) (int, error)
	AllMessages(ctx context.Context) ([]ai.Message, error)
	LastMessages(ctx context.Context, n int) ([]ai.Message, error)
	PopLastMessage(ctx context.Context) (*ai.Message, error)
	ClearMessages(ctx context.Context)
	FilterByRole(ctx context.Context, role ai.MessageRole) ([]ai.Message, error)
}
