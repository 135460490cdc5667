package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/flowmesh/agentgraph/core/cost"
	"github.com/flowmesh/agentgraph/core/overview"
	"github.com/flowmesh/agentgraph/internal/jsonschema"
	"github.com/flowmesh/agentgraph/providers/ai"
	"github.com/flowmesh/agentgraph/providers/memory"
	"github.com/flowmesh/agentgraph/providers/memory/inmemory"
	"github.com/flowmesh/agentgraph/providers/observability"
	"github.com/flowmesh/agentgraph/providers/tool"
)

// Client drives a turn-based conversation against an [ai.Provider]. It owns
// conversation history (via a [memory.Provider]), tool registration (via a
// [tool.Catalog]), system prompt enrichment, and optional observability
// around every request. Construct one with [New]; for structured (typed)
// output use [NewStructured] or wrap a Client with [FromBaseClient].
type Client struct {
	llmProvider ai.Provider
	sendChain   SendFunc
	streamChain StreamFunc

	memoryProvider memory.Provider
	toolCatalog    *tool.Catalog

	defaultModel        string
	systemPrompt        string
	defaultOutputSchema *jsonschema.Schema
	modelCost           *cost.ModelCost
	computeCost         *cost.ComputeCost
	requiredTools       []ai.ToolDescription

	enrichWithOutputSchema      bool
	enrichWithToolsCosts        bool
	enrichWithToolsDescriptions bool
	costOptimizationStrategy    cost.OptimizationStrategy

	observer observability.Provider
	logger   *slog.Logger
}

// ClientOptions accumulates the configuration built up by the functional
// options passed to [New]. Callers never construct one directly.
type ClientOptions struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	defaultModel        string
	systemPrompt        string
	defaultOutputSchema *jsonschema.Schema
	modelCost           *cost.ModelCost
	computeCost         *cost.ComputeCost
	requiredTools       []tool.GenericTool

	enrichWithOutputSchema      bool
	enrichWithToolsCosts        bool
	enrichWithToolsDescriptions bool
	costOptimizationStrategy    cost.OptimizationStrategy

	memory     memory.Provider
	tools      []tool.GenericTool
	middleware []MiddlewareConfig
	observer   observability.Provider
	logger     *slog.Logger
}

// WithAPIKey overrides the API key the underlying provider authenticates with.
func WithAPIKey(apiKey string) func(*ClientOptions) {
	return func(o *ClientOptions) { o.apiKey = apiKey }
}

// WithBaseURL overrides the base URL the underlying provider sends requests to.
func WithBaseURL(baseURL string) func(*ClientOptions) {
	return func(o *ClientOptions) { o.baseURL = baseURL }
}

// WithHttpClient sets the HTTP client used by the underlying provider.
func WithHttpClient(httpClient *http.Client) func(*ClientOptions) {
	return func(o *ClientOptions) { o.httpClient = httpClient }
}

// WithDefaultModel sets the model name sent with every request that doesn't
// override it via a per-call SendMessageOption.
func WithDefaultModel(model string) func(*ClientOptions) {
	return func(o *ClientOptions) { o.defaultModel = model }
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) func(*ClientOptions) {
	return func(o *ClientOptions) { o.systemPrompt = prompt }
}

// WithDefaultOutputSchema sets the structured-output schema applied to every
// request by default, unless overridden per-call via [WithOutputSchema].
// [FromBaseClient] calls [Client.SetDefaultOutputSchema] directly instead of
// going through this option.
func WithDefaultOutputSchema(schema *jsonschema.Schema) func(*ClientOptions) {
	return func(o *ClientOptions) { o.defaultOutputSchema = schema }
}

// WithMemory sets the conversation history backend used by ContinueConversation
// and StreamContinueConversation. Without this option the client has no memory:
// SendMessage/StreamMessage still work in a stateless, single-turn fashion, but
// ContinueConversation/StreamContinueConversation return an error.
func WithMemory(m memory.Provider) func(*ClientOptions) {
	return func(o *ClientOptions) { o.memory = m }
}

// WithTools registers tools the LLM may call. Tool names must be unique;
// later registrations with a name collision overwrite earlier ones.
func WithTools(tools ...tool.GenericTool) func(*ClientOptions) {
	return func(o *ClientOptions) { o.tools = append(o.tools, tools...) }
}

// WithRequiredTools registers tools that also appear in the catalog, and
// additionally forces the model to call one of them instead of responding
// with plain text (see [ai.ToolChoice.AtLeastOneRequired]).
func WithRequiredTools(tools ...tool.GenericTool) func(*ClientOptions) {
	return func(o *ClientOptions) { o.requiredTools = append(o.requiredTools, tools...) }
}

// WithModelCost attaches per-token pricing used to compute cost summaries
// through core/overview. When omitted, New attempts to load it from the
// AIGO_MODEL_INPUT_COST_PER_MILLION / AIGO_MODEL_OUTPUT_COST_PER_MILLION
// environment variables.
func WithModelCost(modelCost cost.ModelCost) func(*ClientOptions) {
	return func(o *ClientOptions) { o.modelCost = &modelCost }
}

// WithComputeCost attaches infrastructure-time pricing used to compute cost
// summaries through core/overview. When omitted, New attempts to load it from
// the AIGO_COMPUTE_COST_PER_SECOND environment variable.
func WithComputeCost(computeCost cost.ComputeCost) func(*ClientOptions) {
	return func(o *ClientOptions) { o.computeCost = &computeCost }
}

// WithObserver wires distributed tracing, metrics, and structured logging
// around every LLM call. When set, [NewObservabilityMiddleware] is
// automatically prepended to the send/stream middleware chain, making it the
// outermost wrapper.
func WithObserver(observer observability.Provider) func(*ClientOptions) {
	return func(o *ClientOptions) { o.observer = observer }
}

// WithMiddleware registers one or more send/stream middleware pairs, applied
// in order around every provider call (the first entry is outermost). Every
// MiddlewareConfig must have a non-nil Send field; New returns an error
// naming the offending index otherwise. Automatically combined with the
// middleware [WithObserver] installs, which always runs outermost.
func WithMiddleware(middleware ...MiddlewareConfig) func(*ClientOptions) {
	return func(o *ClientOptions) { o.middleware = append(o.middleware, middleware...) }
}

// WithLogger stores a structured logger on the client, independent of any
// observer configured via [WithObserver]. The Client itself does not write
// any log records through it.
func WithLogger(logger *slog.Logger) func(*ClientOptions) {
	return func(o *ClientOptions) { o.logger = logger }
}

// WithEnrichSystemPromptWithOutputSchema appends the active output schema's
// JSON representation to the system prompt. Useful for providers or response
// formats that don't enforce structured output natively.
func WithEnrichSystemPromptWithOutputSchema() func(*ClientOptions) {
	return func(o *ClientOptions) { o.enrichWithOutputSchema = true }
}

// WithEnrichSystemPromptWithToolsDescriptions appends a human-readable list of
// registered tool names and descriptions to the system prompt, in addition to
// the structured tool definitions sent via ChatRequest.Tools.
func WithEnrichSystemPromptWithToolsDescriptions() func(*ClientOptions) {
	return func(o *ClientOptions) { o.enrichWithToolsDescriptions = true }
}

// WithEnrichSystemPromptWithToolsCosts appends each registered tool's cost and
// quality metrics to the system prompt, along with guidance derived from
// strategy, so the model can factor cost into its tool-selection decisions.
func WithEnrichSystemPromptWithToolsCosts(strategy cost.OptimizationStrategy) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.enrichWithToolsCosts = true
		o.costOptimizationStrategy = strategy
	}
}

// New constructs a Client bound to llmProvider. llmProvider must not be nil.
func New(llmProvider ai.Provider, opts ...func(*ClientOptions)) (*Client, error) {
	if llmProvider == nil {
		return nil, errors.New("client: llmProvider must not be nil")
	}

	options := &ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	provider := llmProvider
	if options.apiKey != "" {
		provider = provider.WithAPIKey(options.apiKey)
	}
	if options.baseURL != "" {
		provider = provider.WithBaseURL(options.baseURL)
	}
	if options.httpClient != nil {
		provider = provider.WithHttpClient(options.httpClient)
	}

	for i, mw := range options.middleware {
		if mw.Send == nil {
			return nil, fmt.Errorf("client: middleware[%d] has a nil Send field", i)
		}
	}

	var middlewares []MiddlewareConfig
	if options.observer != nil {
		middlewares = append(middlewares, NewObservabilityMiddleware(options.observer, options.defaultModel))
	}
	middlewares = append(middlewares, options.middleware...)

	var sendChain SendFunc
	var streamChain StreamFunc
	if len(middlewares) > 0 {
		sendChain = buildSendChain(provider, middlewares)
		for _, mw := range middlewares {
			if mw.Stream != nil {
				streamChain = buildStreamChain(provider, middlewares)
				break
			}
		}
	}

	catalog := tool.NewCatalogWithTools(options.tools...)
	catalog.AddTools(options.requiredTools...)

	requiredDescriptions := make([]ai.ToolDescription, 0, len(options.requiredTools))
	for _, t := range options.requiredTools {
		requiredDescriptions = append(requiredDescriptions, t.ToolInfo())
	}

	modelCost := options.modelCost
	if modelCost == nil {
		modelCost = loadModelCostFromEnv()
	}
	computeCost := options.computeCost
	if computeCost == nil {
		computeCost = loadComputeCostFromEnv()
	}

	systemPrompt := options.systemPrompt
	if options.enrichWithToolsDescriptions || options.enrichWithToolsCosts {
		descriptions := make([]ai.ToolDescription, 0, catalog.Size())
		for _, t := range catalog.Tools() {
			descriptions = append(descriptions, t.ToolInfo())
		}

		strategy := cost.OptimizationStrategy("")
		if options.enrichWithToolsCosts {
			strategy = options.costOptimizationStrategy
		}

		systemPrompt = enrichSystemPromptWithTools(systemPrompt, options.tools, descriptions, strategy)
	}

	return &Client{
		llmProvider: provider,
		sendChain:   sendChain,
		streamChain: streamChain,

		memoryProvider: options.memory,
		toolCatalog:    catalog,

		defaultModel:        options.defaultModel,
		systemPrompt:        systemPrompt,
		defaultOutputSchema: options.defaultOutputSchema,
		modelCost:           modelCost,
		computeCost:         computeCost,
		requiredTools:       requiredDescriptions,

		enrichWithOutputSchema:      options.enrichWithOutputSchema,
		enrichWithToolsCosts:        options.enrichWithToolsCosts,
		enrichWithToolsDescriptions: options.enrichWithToolsDescriptions,
		costOptimizationStrategy:    options.costOptimizationStrategy,

		observer: options.observer,
		logger:   options.logger,
	}, nil
}

// loadModelCostFromEnv builds a [cost.ModelCost] from the
// AIGO_MODEL_INPUT_COST_PER_MILLION and AIGO_MODEL_OUTPUT_COST_PER_MILLION
// environment variables. Returns nil if either is unset or fails to parse.
func loadModelCostFromEnv() *cost.ModelCost {
	inStr := os.Getenv("AIGO_MODEL_INPUT_COST_PER_MILLION")
	outStr := os.Getenv("AIGO_MODEL_OUTPUT_COST_PER_MILLION")
	if inStr == "" || outStr == "" {
		return nil
	}

	in, err := strconv.ParseFloat(inStr, 64)
	if err != nil {
		return nil
	}
	out, err := strconv.ParseFloat(outStr, 64)
	if err != nil {
		return nil
	}

	return &cost.ModelCost{InputCostPerMillion: in, OutputCostPerMillion: out}
}

// loadComputeCostFromEnv builds a [cost.ComputeCost] from the
// AIGO_COMPUTE_COST_PER_SECOND environment variable. Returns nil if unset or
// it fails to parse.
func loadComputeCostFromEnv() *cost.ComputeCost {
	costStr := os.Getenv("AIGO_COMPUTE_COST_PER_SECOND")
	if costStr == "" {
		return nil
	}

	perSecond, err := strconv.ParseFloat(costStr, 64)
	if err != nil {
		return nil
	}

	return &cost.ComputeCost{CostPerSecond: perSecond, Currency: "USD"}
}

// SetDefaultOutputSchema sets the structured-output schema applied to every
// request by default. Exposed so [FromBaseClient] can configure an existing
// Client without routing through a functional option.
func (c *Client) SetDefaultOutputSchema(schema *jsonschema.Schema) {
	c.defaultOutputSchema = schema
}

// ToolCatalog returns a clone of the client's registered tools. Mutating the
// returned catalog does not affect the client.
func (c *Client) ToolCatalog() *tool.Catalog {
	return c.toolCatalog.Clone()
}

// Memory returns the client's configured memory provider, or nil when none
// was set via [WithMemory].
func (c *Client) Memory() memory.Provider {
	return c.memoryProvider
}

// Observer returns the client's configured observability provider, or nil
// when none was set via [WithObserver].
func (c *Client) Observer() observability.Provider {
	return c.observer
}

// AppendToSystemPrompt appends suffix to the client's system prompt. Useful
// for adding instructions after construction without rebuilding the client.
func (c *Client) AppendToSystemPrompt(suffix string) {
	c.systemPrompt += suffix
}

// effectiveSend returns the configured middleware chain, or a direct
// provider-calling chain when no middleware was configured.
func (c *Client) effectiveSend() SendFunc {
	if c.sendChain != nil {
		return c.sendChain
	}
	return buildSendChain(c.llmProvider, nil)
}

// effectiveStream returns the configured stream middleware chain, or a
// direct/native-fallback chain when no stream middleware was configured.
func (c *Client) effectiveStream() StreamFunc {
	if c.streamChain != nil {
		return c.streamChain
	}
	return buildStreamChain(c.llmProvider, nil)
}

// sendMessageConfig holds per-call overrides applied on top of the Client's
// defaults for a single SendMessage/ContinueConversation/StreamMessage call.
type sendMessageConfig struct {
	outputSchema          *jsonschema.Schema
	model                 string
	ephemeralSystemPrompt *string
}

// SendMessageOption customizes a single SendMessage, ContinueConversation,
// StreamMessage, or StreamContinueConversation call.
type SendMessageOption func(*sendMessageConfig)

// WithOutputSchema overrides the structured-output schema for a single call,
// on top of the Client's default (see [WithDefaultOutputSchema]).
func WithOutputSchema(schema *jsonschema.Schema) SendMessageOption {
	return func(c *sendMessageConfig) { c.outputSchema = schema }
}

// WithModel overrides the model name for a single call, on top of the
// Client's default (see [WithDefaultModel]).
func WithModel(model string) SendMessageOption {
	return func(c *sendMessageConfig) { c.model = model }
}

// WithEphemeralSystemPrompt replaces the client's configured system prompt
// for a single call only; the client's own systemPrompt field is left
// untouched for subsequent calls.
func WithEphemeralSystemPrompt(prompt string) SendMessageOption {
	return func(c *sendMessageConfig) { c.ephemeralSystemPrompt = &prompt }
}

// SendMessage appends prompt as a user message and sends the conversation to
// the provider, returning its response unmodified. The response is not
// appended to memory: when the model requests tool calls, the caller executes
// them and appends the results itself (typically via the memory provider
// directly), then resumes with ContinueConversation. prompt must be
// non-empty; to continue a conversation without adding new user input, use
// ContinueConversation instead.
//
// When no memory provider is configured, SendMessage runs a single-turn,
// stateless exchange instead of erroring: the prompt becomes the entire
// conversation history for that call.
func (c *Client) SendMessage(ctx context.Context, prompt string, opts ...SendMessageOption) (*ai.ChatResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("client: prompt cannot be empty, use ContinueConversation() to continue without new user input")
	}

	mem := c.memoryProvider
	if mem == nil {
		mem = inmemory.New()
	}
	mem.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: prompt})

	return c.runConversation(ctx, mem, opts...)
}

// ContinueConversation sends the existing conversation history to the
// provider without appending a new user message, returning its response
// unmodified. Requires a memory provider configured via [WithMemory]. Typical
// use: after SendMessage returns tool calls, append the tool results to
// memory, then call ContinueConversation to get the model's next turn.
func (c *Client) ContinueConversation(ctx context.Context, opts ...SendMessageOption) (*ai.ChatResponse, error) {
	if c.memoryProvider == nil {
		return nil, errors.New("client: ContinueConversation requires a memory provider, configure one via WithMemory()")
	}
	return c.runConversation(ctx, c.memoryProvider, opts...)
}

func (c *Client) runConversation(ctx context.Context, mem memory.Provider, opts ...SendMessageOption) (*ai.ChatResponse, error) {
	cfg := &sendMessageConfig{outputSchema: c.defaultOutputSchema, model: c.defaultModel}
	for _, opt := range opts {
		opt(cfg)
	}

	request, err := c.buildRequest(ctx, mem, cfg)
	if err != nil {
		return nil, err
	}

	ov := overview.OverviewFromContext(&ctx)
	if c.modelCost != nil {
		ov.SetModelCost(c.modelCost)
	}
	ov.AddRequest(&request)

	response, err := c.effectiveSend()(ctx, request)
	if err != nil {
		return nil, err
	}

	ov.AddResponse(response)
	ov.IncludeUsage(response.Usage)
	if len(response.ToolCalls) > 0 {
		ov.AddToolCalls(response.ToolCalls)
	}
	if c.computeCost != nil {
		ov.SetComputeCost(c.computeCost)
	}

	return response, nil
}

// buildRequest assembles the ChatRequest for the next turn: loads history
// from mem, attaches tool definitions and routing, enriches the system
// prompt, and applies the structured-output schema when configured.
func (c *Client) buildRequest(ctx context.Context, mem memory.Provider, cfg *sendMessageConfig) (ai.ChatRequest, error) {
	messages, err := mem.AllMessages(ctx)
	if err != nil {
		return ai.ChatRequest{}, fmt.Errorf("client: failed to retrieve messages from memory: %w", err)
	}

	request := ai.ChatRequest{
		Model:        cfg.model,
		Messages:     messages,
		SystemPrompt: c.buildSystemPrompt(cfg),
		Tools:        c.toolDescriptions(),
		ToolChoice:   c.toolChoice(),
	}

	if cfg.outputSchema != nil {
		request.ResponseFormat = &ai.ResponseFormat{
			OutputSchema: cfg.outputSchema,
			Type:         "json_schema",
			Strict:       true,
		}
	}

	return request, nil
}

// buildSystemPrompt returns the effective system prompt for a single call:
// the per-call ephemeral override when set, otherwise the client's (already
// tool-enriched) system prompt, further enriched with the active output
// schema when [WithEnrichSystemPromptWithOutputSchema] is set.
func (c *Client) buildSystemPrompt(cfg *sendMessageConfig) string {
	base := c.systemPrompt
	if cfg.ephemeralSystemPrompt != nil {
		base = *cfg.ephemeralSystemPrompt
	}

	if !c.enrichWithOutputSchema || cfg.outputSchema == nil {
		return base
	}

	schemaJSON, err := cfg.outputSchema.JsonString()
	if err != nil {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, "\n\nRespond using this JSON schema:\n%s", schemaJSON)
	return b.String()
}

func (c *Client) toolDescriptions() []ai.ToolDescription {
	tools := c.toolCatalog.Tools()
	descriptions := make([]ai.ToolDescription, 0, len(tools))
	for _, t := range tools {
		descriptions = append(descriptions, t.ToolInfo())
	}
	return descriptions
}

// toolChoice builds the ai.ToolChoice routing policy from the Client's
// required-tools configuration. Returns nil when no required tools are set,
// leaving tool selection to the provider's default behavior.
func (c *Client) toolChoice() *ai.ToolChoice {
	if len(c.requiredTools) == 0 {
		return nil
	}
	return &ai.ToolChoice{AtLeastOneRequired: true, RequiredTools: c.requiredTools}
}

// StreamMessage appends prompt as a user message and streams the provider's
// response for a single turn, mirroring SendMessage. The stream is not
// appended to memory; callers that want the assistant's streamed content
// persisted must accumulate it themselves and append it once the stream is
// fully consumed.
//
// When no memory provider is configured, StreamMessage runs a single-turn,
// stateless exchange instead of erroring.
func (c *Client) StreamMessage(ctx context.Context, prompt string, opts ...SendMessageOption) (*ai.ChatStream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("client: prompt cannot be empty, use StreamContinueConversation() to continue without new user input")
	}

	mem := c.memoryProvider
	if mem == nil {
		mem = inmemory.New()
	}
	mem.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: prompt})

	return c.runStream(ctx, mem, opts...)
}

// StreamContinueConversation streams a single turn over the existing
// conversation history without appending a new user message. Requires a
// memory provider configured via [WithMemory].
func (c *Client) StreamContinueConversation(ctx context.Context, opts ...SendMessageOption) (*ai.ChatStream, error) {
	if c.memoryProvider == nil {
		return nil, errors.New("client: StreamContinueConversation requires a memory provider, configure one via WithMemory()")
	}
	return c.runStream(ctx, c.memoryProvider, opts...)
}

func (c *Client) runStream(ctx context.Context, mem memory.Provider, opts ...SendMessageOption) (*ai.ChatStream, error) {
	cfg := &sendMessageConfig{outputSchema: c.defaultOutputSchema, model: c.defaultModel}
	for _, opt := range opts {
		opt(cfg)
	}

	request, err := c.buildRequest(ctx, mem, cfg)
	if err != nil {
		return nil, err
	}

	ov := overview.OverviewFromContext(&ctx)
	if c.modelCost != nil {
		ov.SetModelCost(c.modelCost)
	}
	ov.AddRequest(&request)

	return c.effectiveStream()(ctx, request)
}

// enrichSystemPromptWithTools appends a human-readable "Available Tools"
// section (names, descriptions, and cost/quality metrics when present) to
// basePrompt, plus optimization guidance when strategy is non-empty. Returns
// basePrompt unchanged when there are no tools to describe.
func enrichSystemPromptWithTools(basePrompt string, tools []tool.GenericTool, descriptions []ai.ToolDescription, strategy cost.OptimizationStrategy) string {
	if len(tools) == 0 && len(descriptions) == 0 {
		return basePrompt
	}

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n## Available Tools\n\n")
	b.WriteString("You can call the following tools using function calling when they help answer the user.\n\n")

	for _, desc := range descriptions {
		fmt.Fprintf(&b, "- **%s**: %s\n", desc.Name, desc.Description)
		if desc.Metrics != nil {
			fmt.Fprintf(&b, "  - Cost: %s", desc.Metrics.String())
			if metrics := desc.Metrics.MetricsString(); metrics != "" {
				fmt.Fprintf(&b, " (%s)", metrics)
			}
			b.WriteString("\n")
		}
	}

	if strategy != "" {
		b.WriteString("\n### Optimization Goal\n\n")
		b.WriteString(optimizationGuidance(strategy))
		b.WriteString("\n")
	}

	return b.String()
}

// optimizationGuidance returns the model-facing instruction text for strategy.
func optimizationGuidance(strategy cost.OptimizationStrategy) string {
	switch strategy {
	case cost.OptimizeForCost:
		return "Minimize costs: prefer the cheapest tool that can satisfy the request."
	case cost.OptimizeForAccuracy:
		return "Prioritize accuracy: prefer the most reliable tool even if it costs more."
	case cost.OptimizeForSpeed:
		return "Prioritize speed: prefer the fastest tool available."
	case cost.OptimizeForQuality:
		return "Prioritize quality: prefer the tool with the best overall quality score."
	case cost.OptimizeCostEffective:
		return "Balance cost against accuracy: prefer tools with the best cost-effectiveness score."
	default:
		return "Balance cost, speed, and accuracy when selecting a tool."
	}
}
