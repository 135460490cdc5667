package graph

import (
	"context"
	"fmt"
	"iter"

	"github.com/flowmesh/agentgraph/graph/errs"
)

// execState is the linear executor's scratch space for one invocation:
// the node_state map and the in-progress set that turns a true cycle
// into a Deadlock rather than unbounded recursion (§4.3).
type execState struct {
	ctx     context.Context
	g       *Graph
	chatLog *ChatLog

	nodeState  map[string]NodeState
	inProgress map[string]bool
	cycles     []string

	collector *collector
	emit      func(Message) bool
}

// Execute drives g to completion and returns the output stream as an
// iter.Seq2, the Go-idiomatic analogue of the source's async generator
// (§9 "Coroutines / async generators"). Execution is cooperative and
// single-threaded per §5: the scheduler and every node invocation run
// on the calling goroutine, synchronously pushing Messages to yield as
// they are produced.
func Execute(ctx context.Context, g *Graph, chatLog *ChatLog, opts ...ExecutorOption) iter.Seq2[Message, error] {
	cfg := newExecutorConfig(opts)

	return func(yield func(Message, error) bool) {
		provider := resolveObserver(ctx, cfg.observer)
		spanCtx, obsState := observeGraphStart(ctx, provider, g)

		col := newCollector(chatLog.DebugConfig, provider)
		spanCtx = contextWithCollector(spanCtx, col)
		spanCtx = chatLog.WithOverview(spanCtx)

		st := &execState{
			ctx:        spanCtx,
			g:          g,
			chatLog:    chatLog,
			nodeState:  make(map[string]NodeState),
			inProgress: make(map[string]bool),
			collector:  col,
			emit: func(m Message) bool {
				return yield(m, nil)
			},
		}

		for _, f := range g.Findings {
			if f.Severity == SeverityError {
				specErr := &errs.SpecError{Message: f.Message, NodeIDs: nonEmpty(f.NodeID), EdgeIDs: nonEmpty(f.EdgeID)}
				col.capture(spanCtx, DebugEvent{Type: DebugGraphStart, Message: f.Message, Severity: f.Severity, Err: specErr})
				if chatLog.Debug {
					if !st.emit(debugMessage(NodeDebugInfo{NodeID: f.NodeID, Error: f.Message})) {
						return
					}
				}
			}
		}

		for _, id := range g.Order {
			if id == g.SinkID {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			if !st.ensureExecuted(id) {
				return
			}
		}

		st.reportDeadlock()

		executed, bypassed := 0, 0
		for _, s := range st.nodeState {
			switch s {
			case NodeExecuted:
				executed++
			case NodeBypassed:
				bypassed++
			}
		}
		col.capture(spanCtx, DebugEvent{
			Type:     DebugGraphEnd,
			Message:  fmt.Sprintf("graph finished: %d executed, %d bypassed", executed, bypassed),
			Severity: SeverityInfo,
		})
		observeGraphEnd(spanCtx, obsState, executed, bypassed)

		if chatLog.Debug {
			summary := summarize(g, col)
			if !yield(debugSummaryMessage(summary), nil) {
				return
			}
		}
	}
}

// ensureExecuted is the recursive-drive form of §4.3's scheduler loop:
// resolve every non-bypassed incoming dependency first (recursing into
// their own ensureExecuted), apply node auto-bypass (I7), and only then
// invoke the node itself. Returns false if the caller's yield asked the
// stream to stop early.
func (st *execState) ensureExecuted(nodeID string) bool {
	if st.nodeState[nodeID] != NodeUnset {
		return true
	}
	if st.inProgress[nodeID] {
		st.cycles = append(st.cycles, nodeID)
		return true
	}
	st.inProgress[nodeID] = true
	defer delete(st.inProgress, nodeID)

	incoming := st.g.incoming(nodeID)
	for _, e := range incoming {
		if e.Bypassed {
			continue
		}
		if !st.ensureExecuted(e.Source) {
			return false
		}
		if st.nodeState[e.Source] == NodeBypassed {
			e.Bypassed = true
		}
	}

	if len(incoming) > 0 {
		allBypassed := true
		for _, e := range incoming {
			if !e.Bypassed {
				allBypassed = false
				break
			}
		}
		if allBypassed {
			markBypassed(st, nodeID)
			return true
		}
	}

	for _, e := range incoming {
		if e.Bypassed {
			continue
		}
		if st.nodeState[e.Source] != NodeExecuted {
			// A live dependency never resolved — either part of a
			// cycle recorded above, or itself stalled. Leave this node
			// unset; reportDeadlock will surface it at graph end.
			return true
		}
	}

	n, ok := st.g.node(nodeID)
	if !ok {
		return true
	}

	if n.Type() == "loop" {
		return runLoop(st, nodeID)
	}
	return st.runNode(nodeID)
}

// runNode invokes a node's Run, forwards content events to the output
// stream immediately, records every event into the node's outputs and
// propagates it along matching non-bypassed outgoing edges (§4.3 step
// 2), then applies conditional bypass (§4.3 step 4, §4.6). A panic
// inside node business logic is recovered here — the one panic boundary
// §7 calls for — and converted into a node_error debug event.
func (st *execState) runNode(nodeID string) bool {
	n, ok := st.g.node(nodeID)
	if !ok {
		return true
	}

	nodeCtx := st.collector.startNodeSpan(st.ctx, nodeID)
	st.collector.capture(nodeCtx, DebugEvent{Type: DebugNodeStart, NodeID: nodeID, Severity: SeverityInfo})
	defer st.collector.endNodeSpan(nodeID)

	_, proceed := st.drive(nodeCtx, nodeID, n)
	if !proceed {
		return false
	}

	st.nodeState[nodeID] = NodeExecuted
	st.captureNodeEnd(nodeID, n)

	if n.Type() == "conditional" {
		st.handleConditionalBypass(nodeID, n)
	}
	return true
}

// drive runs the node's event sequence under a panic boundary. The
// second return value is false only when the caller's yield asked the
// whole Execute stream to stop.
func (st *execState) drive(ctx context.Context, nodeID string, n Node) (executed bool, proceed bool) {
	defer func() {
		if r := recover(); r != nil {
			CaptureFinding(st.ctx, nodeID, fmt.Sprintf("node panicked: %v", r), SeverityError)
		}
	}()

	proceed = true
	for ev, err := range n.Run(ctx, st.chatLog) {
		if err != nil {
			CaptureFinding(st.ctx, nodeID, err.Error(), SeverityError)
			continue
		}
		sourceType := NormalizeSourceType(ev.SourceType)

		if sourceType == SourceTypeContent {
			if text, ok := ev.Payload.Value.(string); ok {
				if !st.emit(contentMessage(nodeID, text, ev.Extras)) {
					proceed = false
					return
				}
			}
		}

		for _, e := range st.g.outgoing(nodeID) {
			if e.Bypassed || e.SourceType != sourceType {
				continue
			}
			if target, ok := st.g.node(e.Target); ok {
				target.SetInput(e.TargetKey, ev.Payload.Value)
			}
		}
	}
	executed = true
	return
}

func (st *execState) captureNodeEnd(nodeID string, n Node) {
	snap := n.Snapshot()
	evType := DebugNodeEnd
	severity := SeverityWarning
	if snap.Error != nil {
		evType = DebugNodeError
		severity = SeverityError
	}
	st.collector.capture(st.ctx, DebugEvent{
		Type:     evType,
		NodeID:   nodeID,
		Snapshot: &snap,
		Severity: severity,
	})
	if st.chatLog.Debug {
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
		st.emit(debugMessage(info))
	}
}

// handleConditionalBypass implements §4.6's conditional routing: a
// conditional's non-end, non-content output key names the selected
// branch. Every other outgoing edge is bypassed; an unmatched selection
// falls back to a configured default_handle, or else raises a
// RoutingError and bypasses every outgoing edge (§7, B2).
func (st *execState) handleConditionalBypass(nodeID string, n Node) {
	outgoing := st.g.outgoing(nodeID)
	selected := selectedBranch(n.Outputs())
	if selected == "" {
		return
	}

	matched := false
	for _, e := range outgoing {
		if e.SourceType == selected {
			matched = true
			break
		}
	}

	if !matched {
		if cc, ok := n.(conditionalConfig); ok && cc.DefaultHandle() != "" {
			for _, e := range outgoing {
				if e.SourceType == cc.DefaultHandle() {
					matched = true
					selected = cc.DefaultHandle()
					break
				}
			}
		}
	}

	if !matched {
		wired := make([]string, 0, len(outgoing))
		for _, e := range outgoing {
			wired = append(wired, e.SourceType)
		}
		routingErr := &errs.RoutingError{NodeID: nodeID, Handle: selected, Wired: wired}
		st.collector.capture(st.ctx, DebugEvent{
			Type:     DebugNodeError,
			NodeID:   nodeID,
			Message:  routingErr.Error(),
			Severity: SeverityError,
			Err:      routingErr,
		})
		for _, e := range outgoing {
			e.Bypassed = true
			propagateBypassToTarget(st, e.Target)
		}
		return
	}

	for _, e := range outgoing {
		if e.SourceType != selected {
			e.Bypassed = true
			propagateBypassToTarget(st, e.Target)
		}
	}
}

func selectedBranch(outputs map[string]any) string {
	for k := range outputs {
		if k == SourceTypeEnd || k == SourceTypeContent {
			continue
		}
		return k
	}
	return ""
}

// reportDeadlock surfaces a scheduler that made no progress while edges
// remained pending as a Deadlock debug event at graph end (§4.3
// Termination, B5), listing every edge whose source never resolved.
func (st *execState) reportDeadlock() {
	var pending []string
	for _, e := range st.g.Edges {
		if e.Bypassed {
			continue
		}
		if st.nodeState[e.Source] != NodeExecuted {
			pending = append(pending, e.ID())
		}
	}
	if len(pending) == 0 {
		return
	}
	deadlockErr := &errs.Deadlock{PendingEdges: pending}
	st.collector.capture(st.ctx, DebugEvent{
		Type:     DebugCycleDetected,
		Message:  deadlockErr.Error(),
		Severity: SeverityError,
		Err:      deadlockErr,
	})
}

// nonEmpty wraps a possibly-empty scalar id field into a single-element
// slice, or nil, for constructing errs.SpecError from a Finding whose
// NodeID/EdgeID are already-joined display strings.
func nonEmpty(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}
