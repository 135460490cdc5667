package ai

import (
	"context"
	"net/http"
)

// EchoProvider is the package's one minimal, deterministic Provider
// implementation: it makes no network call and answers every request by
// echoing the last message's content back as the assistant's reply,
// optionally prefixed. It exists so the rest of the codebase — client
// construction, the llm node's tool-calling loop, tests — has a concrete
// Provider to exercise without depending on a vendor SDK; wiring a real
// backend is the caller's job, done by registering an ai.Provider of its
// own via nodes.RegisterProvider.
type EchoProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	prefix     string
}

// NewEchoProvider constructs an EchoProvider. prefix, if non-empty, is
// prepended to every echoed response.
func NewEchoProvider(prefix string) *EchoProvider {
	return &EchoProvider{prefix: prefix}
}

func (p *EchoProvider) SendMessage(_ context.Context, request ChatRequest) (*ChatResponse, error) {
	var last string
	if n := len(request.Messages); n > 0 {
		last = request.Messages[n-1].Content
	}
	return &ChatResponse{
		Model:        request.Model,
		Content:      p.prefix + last,
		FinishReason: "stop",
	}, nil
}

func (p *EchoProvider) IsStopMessage(resp *ChatResponse) bool {
	return len(resp.ToolCalls) == 0
}

func (p *EchoProvider) WithAPIKey(apiKey string) Provider {
	c := *p
	c.apiKey = apiKey
	return &c
}

func (p *EchoProvider) WithBaseURL(baseURL string) Provider {
	c := *p
	c.baseURL = baseURL
	return &c
}

func (p *EchoProvider) WithHttpClient(httpClient *http.Client) Provider {
	c := *p
	c.httpClient = httpClient
	return &c
}
