package graph

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/flowmesh/agentgraph/providers/observability"
)

// DebugEventType tags the kind of lifecycle event the debug pipeline
// captured (§4.8).
type DebugEventType string

const (
	DebugNodeStart     DebugEventType = "node_start"
	DebugNodeEnd       DebugEventType = "node_end"
	DebugNodeError     DebugEventType = "node_error"
	DebugGraphStart    DebugEventType = "graph_start"
	DebugGraphEnd      DebugEventType = "graph_end"
	DebugCycleDetected DebugEventType = "cycle_detected"
)

// DebugEvent is one captured lifecycle record before transform/emit.
//
// Err carries the structured error (graph/errs) behind Message, when the
// capturing code has one, so a caller walking ExecutionSummary.Events can
// classify a failure with errors.As instead of pattern-matching Message.
type DebugEvent struct {
	Type     DebugEventType
	NodeID   string
	EdgeID   string
	Message  string
	Severity Severity
	Err      error
	Snapshot *DebugSnapshot
	At       time.Time
}

// Preset names for DebugConfig, mirroring the source's named debug
// profiles (§4.8).
const (
	PresetDefault    = "default"
	PresetMinimal    = "minimal"
	PresetVerbose    = "verbose"
	PresetProduction = "production"
	PresetErrorsOnly = "errors_only"
)

// DebugConfig controls the transform stage of the debug pipeline:
// include/exclude filters, redaction, truncation, and sampling.
type DebugConfig struct {
	Preset string

	IncludeTypes []DebugEventType
	ExcludeTypes []DebugEventType

	RedactKeys []string
	MaxStringLength int
	SampleRate      float64 // 0 < rate <= 1; 0 means "unset, treat as 1"

	LogBackend bool
}

// ApplyPreset returns the DebugConfig for a named preset, used when a
// spec requests debug mode without a custom debug_config.
func ApplyPreset(preset string) *DebugConfig {
	switch preset {
	case PresetMinimal:
		return &DebugConfig{
			Preset:       PresetMinimal,
			IncludeTypes: []DebugEventType{DebugNodeError, DebugCycleDetected, DebugGraphEnd},
		}
	case PresetVerbose:
		return &DebugConfig{Preset: PresetVerbose}
	case PresetProduction:
		return &DebugConfig{
			Preset:          PresetProduction,
			RedactKeys:      []string{"password", "api_key", "token", "secret"},
			MaxStringLength: observability.DefaultMaxStringLength,
			SampleRate:      0.1,
			LogBackend:      true,
		}
	case PresetErrorsOnly:
		return &DebugConfig{
			Preset:       PresetErrorsOnly,
			IncludeTypes: []DebugEventType{DebugNodeError, DebugCycleDetected},
		}
	default:
		return &DebugConfig{Preset: PresetDefault}
	}
}

// collector accumulates DebugEvents for one graph invocation and
// optionally mirrors them into the observability Provider's logger and
// tracer per §4.8's "Log backend sink" paragraph.
type collector struct {
	cfg      *DebugConfig
	events   []DebugEvent
	counter  int

	redact *regexp.Regexp

	observer  observability.Provider
	rootSpan  observability.Span
	nodeSpans map[string]observability.Span
}

func newCollector(cfg *DebugConfig, observer observability.Provider) *collector {
	if cfg == nil {
		cfg = ApplyPreset(PresetDefault)
	}
	return &collector{cfg: cfg, redact: compileRedactPattern(cfg.RedactKeys), observer: observer, nodeSpans: make(map[string]observability.Span)}
}

// compileRedactPattern builds a case-insensitive "key[:=]value" matcher
// from the configured RedactKeys, so a caller asking to redact
// "session_id" doesn't also get the unrelated default keys redacted (or
// miss "session_id" itself). Returns nil when no keys are configured.
func compileRedactPattern(keys []string) *regexp.Regexp {
	if len(keys) == 0 {
		return nil
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)\s*[:=]\s*\S+`)
}

type debugCtxKey struct{}

func contextWithCollector(ctx context.Context, c *collector) context.Context {
	return context.WithValue(ctx, debugCtxKey{}, c)
}

func collectorFromContext(ctx context.Context) *collector {
	c, _ := ctx.Value(debugCtxKey{}).(*collector)
	return c
}

// CaptureFinding lets node business logic (stub nodes, conditionals,
// loop bounds-checks) push a debug event directly into the current
// execution's pipeline without routing it through the node's own Event
// sequence, the same way the source's yield_debug_error bypasses the
// normal content channel.
func CaptureFinding(ctx context.Context, nodeID, message string, severity Severity) {
	c := collectorFromContext(ctx)
	if c == nil {
		return
	}
	evType := DebugNodeEnd
	if severity == SeverityError {
		evType = DebugNodeError
	}
	c.capture(ctx, DebugEvent{Type: evType, NodeID: nodeID, Message: message, Severity: severity, At: time.Now()})
}

func (c *collector) capture(ctx context.Context, ev DebugEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if !c.passesFilter(ev) {
		return
	}
	ev.Message = c.redactAndTruncate(ev.Message)
	c.events = append(c.events, ev)

	if c.observer == nil {
		return
	}
	c.mirrorToObserver(ctx, ev)
}

func (c *collector) passesFilter(ev DebugEvent) bool {
	if len(c.cfg.IncludeTypes) > 0 {
		found := false
		for _, t := range c.cfg.IncludeTypes {
			if t == ev.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, t := range c.cfg.ExcludeTypes {
		if t == ev.Type {
			return false
		}
	}
	if c.cfg.SampleRate > 0 && c.cfg.SampleRate < 1 {
		// Deterministic decimation rather than a random sample: keep
		// every Nth event so reruns of the same execution (R2) produce
		// identical debug streams.
		c.counter++
		keepEvery := int(1 / c.cfg.SampleRate)
		if keepEvery < 1 {
			keepEvery = 1
		}
		if ev.Type != DebugNodeError && c.counter%keepEvery != 0 {
			return false
		}
	}
	return true
}

func (c *collector) redactAndTruncate(msg string) string {
	if c.redact != nil {
		msg = c.redact.ReplaceAllString(msg, "$1=<redacted>")
	}
	if c.cfg.MaxStringLength > 0 {
		msg = observability.TruncateString(msg, c.cfg.MaxStringLength)
	}
	return msg
}

func (c *collector) mirrorToObserver(ctx context.Context, ev DebugEvent) {
	attrs := []observability.Attribute{
		observability.String(observability.AttrGraphNodeID, ev.NodeID),
		observability.String(observability.AttrGraphDebugEventType, string(ev.Type)),
	}
	if ev.Snapshot != nil {
		attrs = append(attrs, observability.Duration(observability.AttrGraphNodeDuration, ev.Snapshot.Duration))
		c.observer.Histogram(observability.MetricGraphNodeDuration).Record(ctx, ev.Snapshot.Duration.Seconds(),
			observability.String(observability.AttrGraphNodeID, ev.NodeID))
	}

	switch ev.Type {
	case DebugNodeError:
		c.observer.Error(ctx, ev.Message, attrs...)
		if span, ok := c.nodeSpans[ev.NodeID]; ok {
			span.SetStatus(observability.StatusError, ev.Message)
			span.RecordError(nodeErrorFor(ev))
		}
	default:
		c.observer.Debug(ctx, ev.Message, attrs...)
	}
}

func nodeErrorFor(ev DebugEvent) error {
	return &debugMirrorError{msg: ev.Message}
}

type debugMirrorError struct{ msg string }

func (e *debugMirrorError) Error() string { return e.msg }

func (c *collector) startNodeSpan(ctx context.Context, nodeID string) context.Context {
	if c.observer == nil {
		return ctx
	}
	spanCtx, span := c.observer.StartSpan(ctx, observability.SpanGraphNodeExecute,
		observability.String(observability.AttrGraphNodeID, nodeID))
	c.nodeSpans[nodeID] = span
	return spanCtx
}

func (c *collector) endNodeSpan(nodeID string) {
	if span, ok := c.nodeSpans[nodeID]; ok {
		span.End()
		delete(c.nodeSpans, nodeID)
	}
}

// NodeDebugInfo is one per-node record of the final debug_summary
// (§4.8's "Per-node state captured on each node_end").
type NodeDebugInfo struct {
	NodeID      string
	NodeType    string
	WasExecuted bool
	WasBypassed bool
	Duration    time.Duration
	Inputs      map[string]any
	Outputs     map[string]any
	Error       string
}

// ExecutionSummary is the final {type:"debug_summary"} payload (§6).
// Invariant: it contains exactly the nodes with state ∈ {executed,
// bypassed}; unreached nodes are omitted (§4.8's invariant, §P3).
type ExecutionSummary struct {
	Nodes    []NodeDebugInfo
	Findings []Finding
	Events   []DebugEvent
}

// summarize builds the final ExecutionSummary from the graph's node
// states and the collector's captured events.
func summarize(g *Graph, c *collector) ExecutionSummary {
	summary := ExecutionSummary{Findings: g.Findings}
	for _, id := range g.Order {
		n, ok := g.node(id)
		if !ok {
			continue
		}
		snap := n.Snapshot()
		if !snap.WasExecuted && !snap.WasBypassed {
			continue
		}
		info := NodeDebugInfo{
			NodeID:      snap.NodeID,
			NodeType:    snap.NodeType,
			WasExecuted: snap.WasExecuted,
			WasBypassed: snap.WasBypassed,
			Duration:    snap.Duration,
			Inputs:      snap.Inputs,
			Outputs:     snap.Outputs,
		}
		if snap.Error != nil {
			info.Error = snap.Error.Error()
		}
		summary.Nodes = append(summary.Nodes, info)
	}
	if c != nil {
		summary.Events = c.events
	}
	return summary
}
