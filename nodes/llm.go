package nodes

import (
	"context"
	"fmt"
	"iter"

	"github.com/flowmesh/agentgraph/core/client"
	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/graph/errs"
	"github.com/flowmesh/agentgraph/providers/ai"
	"github.com/flowmesh/agentgraph/providers/memory"
	"github.com/flowmesh/agentgraph/providers/memory/inmemory"
	"github.com/flowmesh/agentgraph/providers/tool"
	"github.com/flowmesh/agentgraph/providers/tool/calculator"
	"github.com/flowmesh/agentgraph/providers/tool/webfetch"
)

func init() {
	graph.Register("llm", newLlm)
}

// builtinTools maps the names an `llm` node may list under its "tools"
// config entry to the constructor that builds that tool. NodeLLM.py carries
// no tool catalog of its own; this is a deliberate addition of a small,
// fixed catalog the node can opt into rather than a general tool registry.
var builtinTools = map[string]func() tool.GenericTool{
	"calculator": func() tool.GenericTool { return calculator.NewCalculatorTool() },
	"webfetch":   func() tool.GenericTool { return webfetch.NewWebFetchTool() },
}

// DefaultMaxToolIterations bounds the tool-calling loop when a node's config
// omits max_tool_iterations, guarding against a model that keeps requesting
// tools indefinitely, the same way loop guards against a runaway list.
const DefaultMaxToolIterations = 8

// Llm drives one turn of a conversation against the provider published by
// an upstream client node, using the chat state published by an upstream
// chat node (NodeLLM.py). Streaming replicates the source's chunk-by-chunk
// "content" events followed by a final "end" of the full text; non-streaming
// issues a single synchronous call (§4.4). When configured with a non-empty
// "tools" list, the node also drives a bounded tool-call/tool-result loop
// against the client's registered tool catalog before producing its final
// answer (§DOMAIN STACK).
type Llm struct {
	*graph.Base
	model             string
	stream            bool
	temperature       float64
	maxTokens         int
	tools             []string
	maxToolIterations int
}

func newLlm(id string, data map[string]any) (graph.Node, error) {
	model, _ := data["model"].(string)
	stream, _ := data["stream"].(bool)
	temp, _ := data["temperature"].(float64)
	maxTokens := 0
	switch v := data["max_tokens"].(type) {
	case int:
		maxTokens = v
	case float64:
		maxTokens = int(v)
	}

	var tools []string
	if raw, ok := data["tools"].([]any); ok {
		for _, v := range raw {
			name, ok := v.(string)
			if !ok {
				return nil, &errs.ConfigError{NodeID: id, Message: "llm: tools entries must be strings"}
			}
			if _, known := builtinTools[name]; !known {
				return nil, &errs.ConfigError{NodeID: id, Message: fmt.Sprintf("llm: unknown tool %q", name)}
			}
			tools = append(tools, name)
		}
	}

	maxToolIterations := DefaultMaxToolIterations
	switch v := data["max_tool_iterations"].(type) {
	case int:
		maxToolIterations = v
	case float64:
		maxToolIterations = int(v)
	}

	return &Llm{
		Base:              graph.NewBase(id, "llm", false),
		model:             model,
		stream:            stream,
		temperature:       temp,
		maxTokens:         maxTokens,
		tools:             tools,
		maxToolIterations: maxToolIterations,
	}, nil
}

func (n *Llm) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *Llm) process(ctx context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		rawHandle, ok := n.Input(graph.HandleClientProvider)
		if !ok {
			yield(graph.Event{}, &errs.InputError{NodeID: n.ID(), Key: graph.HandleClientProvider})
			return
		}
		handle, ok := rawHandle.(*ProviderHandle)
		if !ok {
			yield(graph.Event{}, &errs.ConfigError{NodeID: n.ID(), Message: "handle-client-provider input is not a provider handle"})
			return
		}

		rawChat, ok := n.Input(graph.HandleChat)
		if !ok {
			yield(graph.Event{}, &errs.InputError{NodeID: n.ID(), Key: graph.HandleChat})
			return
		}
		state, ok := rawChat.(ChatState)
		if !ok {
			yield(graph.Event{}, &errs.ConfigError{NodeID: n.ID(), Message: "handle-chat input is not a chat state"})
			return
		}
		if len(state.Messages) == 0 {
			yield(graph.Event{}, &errs.InputError{NodeID: n.ID(), Key: "handle-chat/messages"})
			return
		}

		model := n.model
		if model == "" {
			model = handle.Model
		}

		mem := inmemory.New()
		history := truncateHistory(state.Messages[:len(state.Messages)-1], state.SystemPrompt != "")
		for _, m := range history {
			msg := m
			mem.AppendMessage(ctx, &msg)
		}
		prompt := state.Messages[len(state.Messages)-1].Content

		opts := []client.SendMessageOption{}
		if model != "" {
			opts = append(opts, client.WithModel(model))
		}

		clientOpts := []func(*client.ClientOptions){
			client.WithSystemPrompt(state.SystemPrompt),
			client.WithMemory(mem),
			client.WithDefaultModel(model),
		}
		if len(n.tools) > 0 {
			toolSet := make([]tool.GenericTool, 0, len(n.tools))
			for _, name := range n.tools {
				toolSet = append(toolSet, builtinTools[name]())
			}
			clientOpts = append(clientOpts, client.WithTools(toolSet...))
		}

		c, err := client.New(handle.Provider, clientOpts...)
		if err != nil {
			yield(graph.Event{}, &errs.ConfigError{NodeID: n.ID(), Message: err.Error()})
			return
		}

		if !n.stream {
			resp, err := n.dispatchToolLoop(ctx, c, mem, prompt, opts)
			if err != nil {
				yield(graph.Event{}, err)
				return
			}
			yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, resp.Content), nil)
			return
		}

		resp, streamed, err := n.streamWithToolLoop(ctx, c, mem, prompt, opts, yield)
		if err != nil {
			yield(graph.Event{}, err)
			return
		}
		if !streamed {
			return
		}
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, resp.Content), nil)
	}
}

// dispatchToolLoop sends prompt and, while the provider keeps requesting
// tool calls and the configured tool budget allows it, executes each call
// against the client's registered tool catalog, appends the assistant's
// call and the tool's result to mem, and resumes the conversation. Returns
// the first response that requests no further tool calls, or, once the
// tool budget is spent, the last response even if it still requests some.
func (n *Llm) dispatchToolLoop(ctx context.Context, c *client.Client, mem memory.Provider, prompt string, opts []client.SendMessageOption) (*ai.ChatResponse, error) {
	resp, err := c.SendMessage(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	if len(n.tools) == 0 {
		return resp, nil
	}

	catalog := c.ToolCatalog()
	for i := 0; i < n.maxToolIterations && len(resp.ToolCalls) > 0; i++ {
		n.runToolCalls(ctx, mem, catalog, resp)
		resp, err = c.ContinueConversation(ctx, opts...)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// streamWithToolLoop mirrors dispatchToolLoop but streams each round's
// content as it arrives instead of waiting for the full response. Tool-call
// rounds carry no content to stream, so only the final, tool-free round
// actually emits content events. Returns streamed=false when the caller's
// yield signalled it wants no more events.
func (n *Llm) streamWithToolLoop(ctx context.Context, c *client.Client, mem memory.Provider, prompt string, opts []client.SendMessageOption, yield func(graph.Event, error) bool) (*ai.ChatResponse, bool, error) {
	stream, err := c.StreamMessage(ctx, prompt, opts...)
	if err != nil {
		return nil, true, err
	}
	resp, ok, err := n.drainStream(ctx, stream, yield)
	if err != nil || !ok {
		return resp, ok, err
	}

	if len(n.tools) == 0 {
		return resp, true, nil
	}

	catalog := c.ToolCatalog()
	for i := 0; i < n.maxToolIterations && len(resp.ToolCalls) > 0; i++ {
		n.runToolCalls(ctx, mem, catalog, resp)
		stream, err = c.StreamContinueConversation(ctx, opts...)
		if err != nil {
			return nil, true, err
		}
		resp, ok, err = n.drainStream(ctx, stream, yield)
		if err != nil || !ok {
			return resp, ok, err
		}
	}
	return resp, true, nil
}

// drainStream forwards each content delta of stream as a content event and
// accumulates the stream into a final *ai.ChatResponse (including any tool
// calls the round ended on), the way ChatStream.Collect does internally.
func (n *Llm) drainStream(ctx context.Context, stream *ai.ChatStream, yield func(graph.Event, error) bool) (*ai.ChatResponse, bool, error) {
	var generated string
	var toolCalls []ai.ToolCall
	var finishReason string
	for ev, err := range stream.Iter() {
		if err != nil {
			return nil, true, err
		}
		switch ev.Type {
		case ai.StreamEventContent:
			generated += ev.Content
			if !yield(graph.NewEvent(n.ID(), graph.SourceTypeContent, ev.Content), nil) {
				return nil, false, nil
			}
		case ai.StreamEventToolCall:
			if ev.ToolCall != nil {
				toolCalls = appendToolCallDelta(toolCalls, *ev.ToolCall)
			}
		case ai.StreamEventDone:
			finishReason = ev.FinishReason
		case ai.StreamEventError:
			return nil, true, &errs.TransportError{NodeID: n.ID(), Cause: errorString(ev.Error)}
		}
	}
	return &ai.ChatResponse{Content: generated, ToolCalls: toolCalls, FinishReason: finishReason}, true, nil
}

// appendToolCallDelta grows calls to accommodate delta.Index and merges the
// delta's fields in, following the same first-chunk-carries-id-and-name,
// later-chunks-carry-arguments convention ToolCallDelta documents.
func appendToolCallDelta(calls []ai.ToolCall, delta ai.ToolCallDelta) []ai.ToolCall {
	for len(calls) <= delta.Index {
		calls = append(calls, ai.ToolCall{Type: "function"})
	}
	call := &calls[delta.Index]
	if delta.ID != "" {
		call.ID = delta.ID
	}
	if delta.Name != "" {
		call.Function.Name = delta.Name
	}
	if delta.Arguments != "" {
		call.Function.Arguments += delta.Arguments
	}
	return calls
}

// runToolCalls appends resp's assistant turn (carrying its tool calls) to
// mem, then invokes each requested tool against catalog and appends its
// result as a role=tool message, the way ReAct's loop drives a provider
// directly but here through the client's memory-backed conversation.
func (n *Llm) runToolCalls(ctx context.Context, mem memory.Provider, catalog *tool.Catalog, resp *ai.ChatResponse) {
	mem.AppendMessage(ctx, &ai.Message{Role: ai.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
	for _, call := range resp.ToolCalls {
		result := n.callTool(ctx, catalog, call)
		mem.AppendMessage(ctx, &ai.Message{Role: ai.RoleTool, Content: result, ToolCallID: call.ID, Name: call.Function.Name})
	}
}

func (n *Llm) callTool(ctx context.Context, catalog *tool.Catalog, call ai.ToolCall) string {
	t, ok := catalog.Get(call.Function.Name)
	if !ok {
		return fmt.Sprintf(`{"error":"unknown tool %s"}`, call.Function.Name)
	}
	out, err := t.Call(ctx, call.Function.Arguments)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return out
}

// truncateHistory mirrors NodeLLM.py's fixed context-window trim: the last
// five messages when the history leads with a system-context turn, else the
// last four, keeping the window small and bounded regardless of how long the
// conversation has run.
func truncateHistory(messages []ai.Message, hasSystemContext bool) []ai.Message {
	limit := 4
	if hasSystemContext {
		limit = 5
	}
	if len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}

type errorString string

func (e errorString) Error() string { return string(e) }
