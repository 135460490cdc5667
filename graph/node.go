package graph

import (
	"context"
	"iter"
	"maps"
	"time"
)

// NodeState is a node's position in the executor's state machine.
type NodeState int

const (
	NodeUnset NodeState = iota
	NodeExecuted
	NodeBypassed
)

func (s NodeState) String() string {
	switch s {
	case NodeExecuted:
		return "executed"
	case NodeBypassed:
		return "bypassed"
	default:
		return "unreached"
	}
}

// Node is the runtime contract every node type satisfies: configured at
// construction, fed inputs by the executor, and driven through Run to
// produce a finite sequence of events. Run is cached — a second Run
// within the same graph invocation re-yields the cached terminal event
// without invoking node-specific logic again, unless the node's cache
// has been reset (loop re-entry, or an explicit iterate=true node
// between iterations).
type Node interface {
	ID() string
	Type() string

	SetInput(key string, value any)
	Input(key string) (any, bool)
	Inputs() map[string]any
	Outputs() map[string]any
	// SetOutput lets the executor stamp a node's output directly for
	// node types the scheduler drives itself rather than through Run
	// (the loop node's aggregated item/end outputs, §4.5).
	SetOutput(sourceType string, value any)

	MarkBypassed()
	Bypassed() bool

	// Iterate reports whether this node opted into per-iteration cache
	// resets inside a loop's iteration subgraph (§4.5 "explicit opt-in").
	Iterate() bool
	ResetCache()
	Cached() bool

	Run(ctx context.Context, chatLog *ChatLog) iter.Seq2[Event, error]

	Snapshot() DebugSnapshot
}

// ProcessFunc is the node-specific logic every concrete node type
// supplies to Base.RunCached. It is the Go analogue of the source's
// abstract process() coroutine.
type ProcessFunc func(ctx context.Context, chatLog *ChatLog) iter.Seq2[Event, error]

// Base implements the caching/bypass/input-output bookkeeping shared by
// every concrete node type, mirroring the source's Node base class: a
// single cached terminal event (prep/_response), a parents map (here:
// inputs, keyed by target handle), and a bypassed flag. Package nodes
// embeds Base in every built-in node type and supplies its own
// ProcessFunc via Run.
type Base struct {
	id  string
	typ string

	inputs  map[string]any
	outputs map[string]any

	bypassed bool
	iterate  bool

	cached    *Event
	startedAt time.Time
	duration  time.Duration
	executed  bool
	lastErr   error

	internalVariables map[string]any
}

// NewBase constructs a Base for a node of the given spec id and type tag.
// iterate marks whether this node opts into per-iteration cache resets
// inside a loop body (§4.5).
func NewBase(id, typ string, iterate bool) *Base {
	return &Base{
		id:      id,
		typ:     typ,
		inputs:  make(map[string]any),
		outputs: make(map[string]any),
		iterate: iterate,
	}
}

func (b *Base) ID() string   { return b.id }
func (b *Base) Type() string { return b.typ }

func (b *Base) SetInput(key string, value any) {
	b.inputs[key] = value
}

func (b *Base) Input(key string) (any, bool) {
	v, ok := b.inputs[key]
	return v, ok
}

func (b *Base) Inputs() map[string]any {
	return maps.Clone(b.inputs)
}

func (b *Base) Outputs() map[string]any {
	return maps.Clone(b.outputs)
}

func (b *Base) recordOutput(sourceType string, value any) {
	b.outputs[sourceType] = value
}

func (b *Base) SetOutput(sourceType string, value any) {
	b.recordOutput(NormalizeSourceType(sourceType), value)
}

func (b *Base) MarkBypassed()  { b.bypassed = true }
func (b *Base) Bypassed() bool { return b.bypassed }

func (b *Base) Iterate() bool { return b.iterate }

func (b *Base) ResetCache() {
	b.cached = nil
	b.executed = false
	b.lastErr = nil
	clear(b.outputs)
}

func (b *Base) Cached() bool { return b.cached != nil }

// SetInternalVariables lets a concrete node type opt into exposing extra
// debug state beyond inputs/outputs (§4.8 "internal_variables [opt-in]").
func (b *Base) SetInternalVariables(vars map[string]any) {
	b.internalVariables = vars
}

// RunCached implements the node runtime protocol's caching contract
// (§4.4): the first Run invokes process and stamps the result as the
// node's single cached terminal event; every subsequent Run (absent a
// ResetCache) re-yields that cached event without calling process again.
func (b *Base) RunCached(ctx context.Context, process ProcessFunc, chatLog *ChatLog) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		b.startedAt = time.Now()
		defer func() { b.duration = time.Since(b.startedAt) }()

		if b.cached != nil {
			yield(*b.cached, nil)
			return
		}

		for ev, err := range process(ctx, chatLog) {
			if err != nil {
				b.lastErr = err
				if !yield(ev, err) {
					return
				}
				continue
			}
			norm := NormalizeSourceType(ev.SourceType)
			ev.SourceType = norm
			b.recordOutput(norm, ev.Payload.Value)
			// The cache always replays as a terminal "end" event on the
			// next Run, regardless of which type actually produced it
			// last (prep()/_response in the source caches the content,
			// not the type tag it was yielded under).
			cachedEv := Event{SourceType: SourceTypeEnd, Payload: ev.Payload}
			b.cached = &cachedEv
			if !yield(ev, nil) {
				return
			}
		}
		b.executed = true
	}
}

// DebugSnapshot is the per-node state captured by the debug pipeline on
// each node_end (§4.8): inputs, outputs, executed/bypassed flags, and
// timing, with internal_variables left to concrete node types that want
// to opt into exposing extra state.
type DebugSnapshot struct {
	NodeID            string
	NodeType          string
	Inputs            map[string]any
	Outputs           map[string]any
	WasExecuted       bool
	WasBypassed       bool
	Duration          time.Duration
	InternalVariables map[string]any
	Error             error
}

// Snapshot satisfies Node.Snapshot for any type embedding Base that does
// not need to override it.
func (b *Base) Snapshot() DebugSnapshot {
	return DebugSnapshot{
		NodeID:            b.id,
		NodeType:          b.typ,
		Inputs:            maps.Clone(b.inputs),
		Outputs:           maps.Clone(b.outputs),
		WasExecuted:       b.executed,
		WasBypassed:       b.bypassed,
		Duration:          b.duration,
		InternalVariables: maps.Clone(b.internalVariables),
		Error:             b.lastErr,
	}
}
