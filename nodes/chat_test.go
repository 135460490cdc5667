package nodes

import (
	"testing"

	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/providers/ai"
)

func TestChatAssemblesStateFromSeededMessage(t *testing.T) {
	n, err := newChat("c1", nil)
	if err != nil {
		t.Fatalf("newChat: %v", err)
	}
	n.(*Chat).SeedMessage("hello", nil, nil)

	events := collectEvents(t, n, &graph.ChatLog{})
	state, ok := events[0].Payload.Value.(ChatState)
	if !ok {
		t.Fatalf("payload = %v, want ChatState", events[0].Payload.Value)
	}
	if len(state.Messages) != 1 || state.Messages[0].Content != "hello" || state.Messages[0].Role != ai.RoleUser {
		t.Errorf("Messages = %+v, want one user message %q", state.Messages, "hello")
	}
}

func TestChatWiredMessageOverridesSeeded(t *testing.T) {
	n, err := newChat("c1", nil)
	if err != nil {
		t.Fatalf("newChat: %v", err)
	}
	n.(*Chat).SeedMessage("seeded", nil, nil)
	n.SetInput(graph.HandleUserMessage, "wired")

	events := collectEvents(t, n, &graph.ChatLog{})
	state := events[0].Payload.Value.(ChatState)
	if len(state.Messages) != 1 || state.Messages[0].Content != "wired" {
		t.Errorf("Messages = %+v, want the wired message to win", state.Messages)
	}
}

func TestChatCarriesSystemPromptAndPriorHistory(t *testing.T) {
	n, err := newChat("c1", nil)
	if err != nil {
		t.Fatalf("newChat: %v", err)
	}
	prior := ChatState{Messages: []ai.Message{{Role: ai.RoleUser, Content: "earlier"}}}
	n.SetInput(graph.HandleChat, prior)
	n.SetInput(graph.HandleSystemContext, "be terse")
	n.(*Chat).SeedMessage("now", nil, nil)

	events := collectEvents(t, n, &graph.ChatLog{})
	state := events[0].Payload.Value.(ChatState)
	if state.SystemPrompt != "be terse" {
		t.Errorf("SystemPrompt = %q, want %q", state.SystemPrompt, "be terse")
	}
	if len(state.Messages) != 2 || state.Messages[0].Content != "earlier" || state.Messages[1].Content != "now" {
		t.Errorf("Messages = %+v, want [earlier now]", state.Messages)
	}
}
