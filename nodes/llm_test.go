package nodes

import (
	"context"
	"net/http"
	"testing"

	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/providers/ai"
)

func chatStateWithOneMessage(text string) ChatState {
	return ChatState{Messages: []ai.Message{{Role: ai.RoleUser, Content: text}}}
}

// fakeToolCallingProvider answers its first call with a request to call the
// Calculator tool, then answers any subsequent call with a plain final
// response, exercising the llm node's tool-call/tool-result loop without a
// real provider.
type fakeToolCallingProvider struct {
	calls int
}

func (p *fakeToolCallingProvider) SendMessage(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
	p.calls++
	if p.calls == 1 {
		return &ai.ChatResponse{
			ToolCalls: []ai.ToolCall{{
				ID:       "call-1",
				Type:     "function",
				Function: ai.ToolCallFunction{Name: "Calculator", Arguments: `{"A":2,"B":3,"Op":"add"}`},
			}},
			FinishReason: "tool_calls",
		}, nil
	}
	return &ai.ChatResponse{Content: "the answer is 5", FinishReason: "stop"}, nil
}
func (p *fakeToolCallingProvider) IsStopMessage(resp *ai.ChatResponse) bool {
	return len(resp.ToolCalls) == 0
}
func (p *fakeToolCallingProvider) WithAPIKey(string) ai.Provider           { return p }
func (p *fakeToolCallingProvider) WithBaseURL(string) ai.Provider          { return p }
func (p *fakeToolCallingProvider) WithHttpClient(*http.Client) ai.Provider { return p }

func TestLlmNonStreamingReturnsProviderContent(t *testing.T) {
	n, err := newLlm("l1", map[string]any{"model": "fake-model"})
	if err != nil {
		t.Fatalf("newLlm: %v", err)
	}
	n.SetInput(graph.HandleClientProvider, &ProviderHandle{Provider: &fakeProvider{}, Model: "fake-model"})
	n.SetInput(graph.HandleChat, chatStateWithOneMessage("hi"))

	events := collectEvents(t, n, &graph.ChatLog{})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (non-streaming yields one end event): %+v", len(events), events)
	}
	if events[0].Payload.Value != "fake response" {
		t.Errorf("payload = %v, want %q", events[0].Payload.Value, "fake response")
	}
}

func TestLlmStreamingEmitsContentThenEnd(t *testing.T) {
	n, err := newLlm("l1", map[string]any{"model": "fake-model", "stream": true})
	if err != nil {
		t.Fatalf("newLlm: %v", err)
	}
	n.SetInput(graph.HandleClientProvider, &ProviderHandle{Provider: &fakeProvider{}, Model: "fake-model"})
	n.SetInput(graph.HandleChat, chatStateWithOneMessage("hi"))

	events := collectEvents(t, n, &graph.ChatLog{})
	if len(events) < 2 {
		t.Fatalf("got %d events, want at least a content event and an end event: %+v", len(events), events)
	}
	last := events[len(events)-1]
	if last.SourceType != graph.SourceTypeEnd || last.Payload.Value != "fake response" {
		t.Errorf("last event = %+v, want end=%q", last, "fake response")
	}
}

func TestLlmRequiresClientProviderInput(t *testing.T) {
	n, err := newLlm("l1", nil)
	if err != nil {
		t.Fatalf("newLlm: %v", err)
	}
	n.SetInput(graph.HandleChat, chatStateWithOneMessage("hi"))

	var gotErr error
	for ev, e := range n.Run(context.Background(), &graph.ChatLog{}) {
		_ = ev
		if e != nil {
			gotErr = e
		}
	}
	if gotErr == nil {
		t.Fatal("expected an input error for a missing client provider")
	}
}

func TestLlmRequiresNonEmptyChatHistory(t *testing.T) {
	n, err := newLlm("l1", nil)
	if err != nil {
		t.Fatalf("newLlm: %v", err)
	}
	n.SetInput(graph.HandleClientProvider, &ProviderHandle{Provider: &fakeProvider{}})
	n.SetInput(graph.HandleChat, ChatState{})

	var gotErr error
	for ev, e := range n.Run(context.Background(), &graph.ChatLog{}) {
		_ = ev
		if e != nil {
			gotErr = e
		}
	}
	if gotErr == nil {
		t.Fatal("expected an input error for an empty chat history")
	}
}

func TestLlmRunsToolCallLoopThenReturnsFinalAnswer(t *testing.T) {
	n, err := newLlm("l1", map[string]any{"tools": []any{"calculator"}})
	if err != nil {
		t.Fatalf("newLlm: %v", err)
	}
	provider := &fakeToolCallingProvider{}
	n.SetInput(graph.HandleClientProvider, &ProviderHandle{Provider: provider, Model: "fake-model"})
	n.SetInput(graph.HandleChat, chatStateWithOneMessage("what is 2+3?"))

	events := collectEvents(t, n, &graph.ChatLog{})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 final end event: %+v", len(events), events)
	}
	if events[0].Payload.Value != "the answer is 5" {
		t.Errorf("payload = %v, want %q", events[0].Payload.Value, "the answer is 5")
	}
	if provider.calls != 2 {
		t.Errorf("provider.calls = %d, want 2 (one tool-call round, one final round)", provider.calls)
	}
}

func TestLlmRejectsUnknownTool(t *testing.T) {
	if _, err := newLlm("l1", map[string]any{"tools": []any{"does-not-exist"}}); err == nil {
		t.Fatal("expected a config error for an unregistered tool name")
	}
}
