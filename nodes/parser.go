package nodes

import (
	"context"
	"iter"
	"regexp"
	"slices"
	"strings"
	"text/template"

	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/graph/errs"
)

func init() {
	graph.Register("parser", newParser)
}

// Parser renders a text/template against every input it has received,
// keyed by target handle (NodeParser.py's template_parse). The source
// evaluates Jinja2 with two custom filters (regex_replace,
// regex_findall); no templating library exists anywhere in the example
// pack (§DOMAIN STACK), so this is built on the standard library's
// text/template with equivalently named func-map entries instead.
type Parser struct {
	*graph.Base
	text string
	tmpl *template.Template
	err  error
}

var parserFuncs = template.FuncMap{
	"regexReplace": func(pattern, repl, s string) (string, error) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return "", err
		}
		return re.ReplaceAllString(s, repl), nil
	},
	"regexFindAll": func(pattern, s string) ([]string, error) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return re.FindAllString(s, -1), nil
	},
	"join": strings.Join,
}

func newParser(id string, data map[string]any) (graph.Node, error) {
	text, _ := data["text"].(string)
	tmpl, err := template.New(id).Funcs(parserFuncs).Parse(text)
	return &Parser{Base: graph.NewBase(id, "parser", false), text: text, tmpl: tmpl, err: err}, nil
}

func (n *Parser) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *Parser) process(_ context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		inputs := n.Inputs()
		keys := make([]string, 0, len(inputs))
		for k := range inputs {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		if n.err != nil {
			yield(graph.Event{}, &errs.TemplateError{NodeID: n.ID(), Template: n.text, Keys: keys, Cause: n.err})
			return
		}
		var buf strings.Builder
		if err := n.tmpl.Execute(&buf, inputs); err != nil {
			yield(graph.Event{}, &errs.TemplateError{NodeID: n.ID(), Template: n.text, Keys: keys, Cause: err})
			return
		}
		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, buf.String()), nil)
	}
}
