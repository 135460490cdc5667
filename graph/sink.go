package graph

import (
	"context"
	"iter"
)

// sinkNode is the process-wide node every edge with an absent
// target_key is rewritten to target (§4.1 operation 2). It has no
// business logic: it exists only so those edges have somewhere to
// route their payload without inventing a side channel.
type sinkNode struct {
	*Base
}

func newSinkNode(id string) Node {
	return &sinkNode{Base: NewBase(id, "void", false)}
}

func (n *sinkNode) Run(ctx context.Context, chatLog *ChatLog) iter.Seq2[Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *sinkNode) process(_ context.Context, _ *ChatLog) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		yield(NewEvent(n.id, SourceTypeEnd, n.Inputs()), nil)
	}
}

// stubNode stands in for an unrecognized spec type tag (§4.1 operation
// 4): it emits a debug finding and a no-op terminal event, letting
// execution continue around it rather than aborting the build.
type stubNode struct {
	*Base
	declaredType string
}

func newStubNode(id, declaredType string) Node {
	return &stubNode{Base: NewBase(id, declaredType, false), declaredType: declaredType}
}

func (n *stubNode) Run(ctx context.Context, chatLog *ChatLog) iter.Seq2[Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *stubNode) process(ctx context.Context, _ *ChatLog) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		CaptureFinding(ctx, n.id, "node "+n.id+" has unrecognized type \""+n.declaredType+"\"; executing as no-op stub", SeverityWarning)
		yield(NewEvent(n.id, SourceTypeEnd, nil), nil)
	}
}
