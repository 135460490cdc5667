package graph

import (
	"context"

	"github.com/flowmesh/agentgraph/core/overview"
)

// Attachment is an opaque file/image reference carried alongside the
// initial user message into the master user_input node.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
	URL         string
}

// ChatLog is the small per-execution record threaded through every node
// of one graph invocation: built once by whoever starts the execution
// (the CLI, or an inner node for its nested graph) and passed to Execute,
// treated as immutable thereafter, plus the cost/usage accumulator
// every node's LLM calls feed into.
type ChatLog struct {
	ChatID   string
	ThreadID string
	UserID   string

	Message     string
	Attachments []Attachment
	Images      []Attachment

	Debug       bool
	DebugConfig *DebugConfig

	Overview *overview.Overview
}

// WithOverview returns ctx carrying l.Overview, the same context-carry
// convention core/overview already establishes for a single execution.
func (l *ChatLog) WithOverview(ctx context.Context) context.Context {
	if l.Overview == nil {
		l.Overview = &overview.Overview{}
	}
	return l.Overview.ToContext(ctx)
}
