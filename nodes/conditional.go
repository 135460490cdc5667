package nodes

import (
	"context"
	"iter"
	"strings"
	"text/template"

	"github.com/flowmesh/agentgraph/core/parse"
	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/graph/errs"
)

func init() {
	graph.Register("conditional", newConditional)
}

// Conditional routes execution by rendering a template against its
// input and emitting the rendered string as the selected branch's
// source_type (NodeConditional.py: a Jinja2 "condition" template
// instead evaluated here with text/template). The string input is
// JSON-decoded (with jsonrepair recovery) when it looks JSON-shaped so
// the template can address fields by name; a merge_strategy of
// "namespaced" keeps multiple wired inputs under their own handle keys
// instead of flattening them into one context (§4.6).
type Conditional struct {
	*graph.Base
	tmpl          *template.Template
	err           error
	mergeStrategy string
	outputHandles []string
	defaultHandle string
}

func newConditional(id string, data map[string]any) (graph.Node, error) {
	condition, _ := data["condition"].(string)
	tmpl, err := template.New(id).Parse(condition)

	merge, _ := data["merge_strategy"].(string)
	if merge == "" {
		merge = "flat"
	}

	var handles []string
	if raw, ok := data["output_handles"].([]any); ok {
		for _, h := range raw {
			if s, ok := h.(string); ok {
				handles = append(handles, s)
			}
		}
	}
	defaultHandle, _ := data["default_handle"].(string)

	if condition == "" {
		return nil, &errs.ConfigError{NodeID: id, Message: "conditional node requires a non-empty condition template"}
	}

	return &Conditional{
		Base:          graph.NewBase(id, "conditional", false),
		tmpl:          tmpl,
		err:           err,
		mergeStrategy: merge,
		outputHandles: handles,
		defaultHandle: defaultHandle,
	}, nil
}

// OutputHandles and DefaultHandle satisfy graph's conditionalConfig
// contract, used by both the validator (warning-level wiring checks)
// and the executor's unmatched-selection fallback (§4.6).
func (n *Conditional) OutputHandles() []string { return n.outputHandles }
func (n *Conditional) DefaultHandle() string   { return n.defaultHandle }

func (n *Conditional) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *Conditional) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		if n.err != nil {
			yield(graph.Event{}, &errs.TemplateError{NodeID: n.ID(), Template: "", Cause: n.err})
			return
		}

		renderCtx, raw, ok := n.renderContext()
		if !ok {
			yield(graph.Event{}, &errs.InputError{NodeID: n.ID(), Key: "handle_input"})
			return
		}

		var buf strings.Builder
		if err := n.tmpl.Execute(&buf, renderCtx); err != nil {
			yield(graph.Event{}, &errs.TemplateError{NodeID: n.ID(), Cause: err})
			return
		}
		selected := strings.TrimSpace(buf.String())
		if selected == "" {
			yield(graph.Event{}, &errs.ConfigError{NodeID: n.ID(), Message: "condition rendered an empty handle name"})
			return
		}

		if !yield(graph.NewEvent(n.ID(), selected, raw), nil) {
			return
		}
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, map[string]any{"selected": selected}), nil)
	}
}

// renderContext builds the template's dot-context from every wired
// input. With merge_strategy "flat" (the default) a single dict-shaped
// input is used directly as the context (non-dict inputs are exposed
// under "value"); "namespaced" keeps every handle's input under its own
// key even when there is exactly one.
func (n *Conditional) renderContext() (map[string]any, any, bool) {
	inputs := n.Inputs()
	raw, ok := inputs["handle_input"]
	if !ok {
		if len(inputs) == 0 {
			return nil, nil, false
		}
		if n.mergeStrategy == "namespaced" {
			return inputs, inputs, true
		}
		raw = inputs
	}

	decoded := raw
	if s, ok := raw.(string); ok {
		if m, err := parse.ParseStringAs[map[string]any](s); err == nil {
			decoded = m
		}
	}

	if n.mergeStrategy == "namespaced" {
		return map[string]any{"handle_input": decoded}, raw, true
	}
	if m, ok := decoded.(map[string]any); ok {
		return m, raw, true
	}
	return map[string]any{"value": decoded}, raw, true
}
