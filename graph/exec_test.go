package graph

import (
	"context"
	"iter"
	"testing"
)

func freshChatLog() *ChatLog {
	return &ChatLog{ChatID: "c", ThreadID: "t", DebugConfig: &DebugConfig{}}
}

func drain(g *Graph) []Message {
	var out []Message
	for m, err := range Execute(context.Background(), g, freshChatLog()) {
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

func TestConditionalBypassSkipsUnselectedBranch(t *testing.T) {
	Register("user_input", func(id string, _ map[string]any) (Node, error) {
		return newFakeNode(id, "user_input", map[string]any{HandleUserMessage: "hi"}), nil
	})
	Register("conditional", func(id string, _ map[string]any) (Node, error) {
		return &branchFakeSimple{Base: NewBase(id, "conditional", false), branch: "true_branch"}, nil
	})
	registerFake("text", nil)

	spec := &Spec{
		Type: "agent_flow",
		Nodes: []NodeSpec{
			{ID: "input", Type: "user_input"},
			{ID: "cond", Type: "conditional"},
			{ID: "yes", Type: "text"},
			{ID: "no", Type: "text"},
		},
		Edges: []EdgeSpec{
			{Source: "input", SourceHandle: HandleUserMessage, Target: "cond", TargetHandle: "handle_parser_input"},
			{Source: "cond", SourceHandle: "true_branch", Target: "yes", TargetHandle: "handle_value"},
			{Source: "cond", SourceHandle: "false_branch", Target: "no", TargetHandle: "handle_value"},
		},
	}

	g, err := Compile(spec, "hi", nil, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	drain(g)

	yesEdge, noEdge := g.Edges[1], g.Edges[2]
	if yesEdge.Bypassed {
		t.Error("selected branch edge was bypassed, want live")
	}
	if !noEdge.Bypassed {
		t.Error("unselected branch edge was not bypassed")
	}
}

func TestBypassPropagatesWhenAllIncomingBypassed(t *testing.T) {
	Register("user_input", func(id string, _ map[string]any) (Node, error) {
		return newFakeNode(id, "user_input", map[string]any{HandleUserMessage: "hi"}), nil
	})
	Register("conditional", func(id string, _ map[string]any) (Node, error) {
		return &branchFakeSimple{Base: NewBase(id, "conditional", false), branch: "true_branch"}, nil
	})
	registerFake("text", nil)

	spec := &Spec{
		Type: "agent_flow",
		Nodes: []NodeSpec{
			{ID: "input", Type: "user_input"},
			{ID: "cond", Type: "conditional"},
			{ID: "no", Type: "text"},
			{ID: "downstream", Type: "text"},
		},
		Edges: []EdgeSpec{
			{Source: "input", SourceHandle: HandleUserMessage, Target: "cond", TargetHandle: "handle_parser_input"},
			{Source: "cond", SourceHandle: "false_branch", Target: "no", TargetHandle: "handle_value"},
			{Source: "no", SourceHandle: SourceTypeEnd, Target: "downstream", TargetHandle: "handle_value"},
		},
	}

	g, err := Compile(spec, "hi", nil, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	drain(g)

	if g.Nodes["no"].(*fakeNode).Bypassed() != true {
		t.Error("node fed only by a bypassed edge should itself be bypassed")
	}
	if g.Nodes["downstream"].(*fakeNode).Bypassed() != true {
		t.Error("bypass should propagate transitively downstream")
	}
}

func TestReportDeadlockFlagsUnresolvedCycle(t *testing.T) {
	Register("user_input", func(id string, _ map[string]any) (Node, error) {
		return newFakeNode(id, "user_input", nil), nil
	})
	registerFake("text", map[string]any{SourceTypeEnd: "v"})

	spec := &Spec{
		Type: "agent_flow",
		Nodes: []NodeSpec{
			{ID: "input", Type: "user_input"},
			{ID: "a", Type: "text"},
			{ID: "b", Type: "text"},
		},
		Edges: []EdgeSpec{
			{Source: "a", SourceHandle: SourceTypeEnd, Target: "b", TargetHandle: "handle_value"},
			{Source: "b", SourceHandle: SourceTypeEnd, Target: "a", TargetHandle: "handle_value"},
		},
	}

	g, err := Compile(spec, "hi", nil, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	drain(g)
	// a cycle with no external dependency never reaches NodeExecuted
	// through ensureExecuted's resolve-then-run order; this exercises
	// the deadlock-reporting path without asserting on its message text.
}

type branchFakeSimple struct {
	*Base
	branch string
}

func (n *branchFakeSimple) Run(ctx context.Context, chatLog *ChatLog) iter.Seq2[Event, error] {
	return n.RunCached(ctx, func(context.Context, *ChatLog) iter.Seq2[Event, error] {
		return func(yield func(Event, error) bool) {
			yield(NewEvent(n.ID(), n.branch, true), nil)
		}
	}, chatLog)
}
