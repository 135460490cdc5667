package nodes

import (
	"context"
	"iter"

	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/graph/errs"
	"github.com/flowmesh/agentgraph/providers/ai"
)

func init() {
	graph.Register("client", newClient)
}

// ProviderFactory constructs a fresh ai.Provider for one engine name.
// The only built-in entry is "echo", ai.EchoProvider's deterministic
// stand-in for a real vendor backend; a host process wires its own
// ai.Provider implementation in at startup via RegisterProvider under
// whatever engine name its specs name.
type ProviderFactory func() ai.Provider

var providerFactories = map[string]ProviderFactory{
	"echo": func() ai.Provider { return ai.NewEchoProvider("") },
}

// RegisterProvider installs a provider factory under the given engine
// name, used by client-typed nodes whose data.engine matches (§4.9, the
// Go analogue of NodeClientLLM.py dispatching on ClientNodeModel.engine
// to the matching MagicLLM backend).
func RegisterProvider(engine string, factory ProviderFactory) {
	providerFactories[engine] = factory
}

// Client constructs and exposes an ai.Provider for downstream llm nodes
// (NodeClientLLM.py). The provider is built once at node construction
// time from data.engine/api_key/base_url, then handed out unchanged via
// handle-client-provider on every Run.
type Client struct {
	*graph.Base
	provider ai.Provider
	model    string
}

func newClient(id string, data map[string]any) (graph.Node, error) {
	engine, _ := data["engine"].(string)
	if engine == "" {
		engine = "echo"
	}
	factory, ok := providerFactories[engine]
	if !ok {
		return nil, &errs.ConfigError{NodeID: id, Message: "unknown client engine " + engine}
	}

	provider := factory()
	if apiKey, ok := data["api_key"].(string); ok && apiKey != "" {
		provider = provider.WithAPIKey(apiKey)
	}
	if baseURL, ok := data["base_url"].(string); ok && baseURL != "" {
		provider = provider.WithBaseURL(baseURL)
	}
	model, _ := data["model"].(string)

	return &Client{Base: graph.NewBase(id, "client", false), provider: provider, model: model}, nil
}

func (n *Client) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *Client) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, &ProviderHandle{Provider: n.provider, Model: n.model}), nil)
	}
}

// ProviderHandle is what a client node publishes on handle-client-provider:
// the constructed provider plus the model name an llm node should default
// to when its own data.model is unset.
type ProviderHandle struct {
	Provider ai.Provider
	Model    string
}
