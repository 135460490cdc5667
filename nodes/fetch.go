package nodes

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"strings"
	"text/template"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/flowmesh/agentgraph/graph"
	"github.com/flowmesh/agentgraph/graph/errs"
)

func init() {
	graph.Register("fetch", newFetch)
}

const (
	fetchDefaultTimeout = 30 * time.Second
	fetchMaxBodySize    = 10 * 1024 * 1024
)

// Fetch issues one HTTP request per Run, rendering its URL/body templates
// against the node's wired inputs before sending (NodeFetch.py, which
// renders Jinja2-templated json/data bodies against self.inputs via
// aiohttp). An HTML response is converted to Markdown before being emitted,
// mirroring the webfetch tool's conversion step elsewhere in this module's
// dependency stack.
type Fetch struct {
	*graph.Base
	method      string
	urlTmpl     *template.Template
	bodyTmpl    *template.Template
	headers     map[string]string
	templateErr error
}

func newFetch(id string, data map[string]any) (graph.Node, error) {
	method, _ := data["method"].(string)
	if method == "" {
		method = "GET"
	}
	url, _ := data["url"].(string)

	bodySrc, _ := data["json"].(string)
	if bodySrc == "" {
		bodySrc, _ = data["data"].(string)
	}

	headers := map[string]string{}
	if raw, ok := data["headers"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	urlTmpl, err := template.New(id + ".url").Funcs(parserFuncs).Parse(url)
	var bodyTmpl *template.Template
	if err == nil && bodySrc != "" {
		bodyTmpl, err = template.New(id + ".body").Funcs(parserFuncs).Parse(bodySrc)
	}

	return &Fetch{
		Base:        graph.NewBase(id, "fetch", false),
		method:      strings.ToUpper(method),
		urlTmpl:     urlTmpl,
		bodyTmpl:    bodyTmpl,
		headers:     headers,
		templateErr: err,
	}, nil
}

func (n *Fetch) Run(ctx context.Context, chatLog *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return n.RunCached(ctx, n.process, chatLog)
}

func (n *Fetch) process(ctx context.Context, _ *graph.ChatLog) iter.Seq2[graph.Event, error] {
	return func(yield func(graph.Event, error) bool) {
		if n.templateErr != nil {
			yield(graph.Event{}, &errs.TemplateError{NodeID: n.ID(), Cause: n.templateErr})
			return
		}

		ctxVars := n.Inputs()

		var urlBuf strings.Builder
		if err := n.urlTmpl.Execute(&urlBuf, ctxVars); err != nil {
			yield(graph.Event{}, &errs.TemplateError{NodeID: n.ID(), Cause: err})
			return
		}
		url := urlBuf.String()

		var body io.Reader
		if n.bodyTmpl != nil {
			var bodyBuf strings.Builder
			if err := n.bodyTmpl.Execute(&bodyBuf, ctxVars); err != nil {
				yield(graph.Event{}, &errs.TemplateError{NodeID: n.ID(), Cause: err})
				return
			}
			body = strings.NewReader(bodyBuf.String())
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, fetchDefaultTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(timeoutCtx, n.method, url, body)
		if err != nil {
			yield(graph.Event{}, &errs.TransportError{NodeID: n.ID(), Cause: err})
			return
		}
		for k, v := range n.headers {
			req.Header.Set(k, v)
		}
		if body != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			yield(graph.Event{}, &errs.TransportError{NodeID: n.ID(), Cause: err})
			return
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBodySize))
		if err != nil {
			yield(graph.Event{}, &errs.TransportError{NodeID: n.ID(), Status: resp.StatusCode, Cause: err})
			return
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			yield(graph.Event{}, &errs.TransportError{NodeID: n.ID(), Status: resp.StatusCode})
			return
		}

		contentType := resp.Header.Get("Content-Type")
		var result any
		switch {
		case strings.Contains(contentType, "application/json"):
			if err := json.Unmarshal(raw, &result); err != nil {
				result = string(raw)
			}
		case strings.Contains(contentType, "text/html"):
			markdown, err := htmltomarkdown.ConvertString(string(raw))
			if err != nil {
				markdown = string(raw)
			}
			result = markdown
		default:
			result = string(raw)
		}

		yield(graph.NewEvent(n.ID(), graph.SourceTypeEnd, result), nil)
	}
}
