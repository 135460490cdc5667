package graph

import (
	"fmt"

	"github.com/flowmesh/agentgraph/core/parse"
)

// DefaultMaxIterations mirrors the source's DEFAULT_MAX_ITERATIONS
// iteration cap (§4.5's "ambient safety bound").
const DefaultMaxIterations = 100

const (
	// OutputHandleItem and OutputHandleEnd are the symbolic names for the
	// loop node's two outputs. The source defines handle constants that
	// differ from what it actually emits; this implementation keeps
	// these as readable call-site names while emitting the literal
	// source_types (content, end) on the wire (§9 Open Questions).
	OutputHandleItem = "item"
	OutputHandleEnd  = "end"
)

// loopConfig is implemented by nodes.Loop to expose its configured
// iteration bound.
type loopConfig interface {
	MaxIterations() int
}

// runLoop is the loop executor (§4.5): partition the loop node's
// downstream subtree into an iteration subgraph (reachable from the
// item/content output) and an aggregation subgraph (reachable from the
// end output), drive the iteration subgraph once per list element, then
// drive the aggregation subgraph once with the accumulated results.
func runLoop(st *execState, loopNodeID string) bool {
	n, ok := st.g.node(loopNodeID)
	if !ok {
		return true
	}

	raw, hasList := n.Input(HandleList)
	if !hasList {
		if upstreamBypassed(st.g, loopNodeID, HandleList) {
			markBypassed(st, loopNodeID)
			return true
		}
		CaptureFinding(st.ctx, loopNodeID, "input error: loop node never received its list input", SeverityError)
		st.nodeState[loopNodeID] = NodeExecuted
		st.captureNodeEnd(loopNodeID, n)
		return true
	}

	items, err := decodeList(raw)
	if err != nil {
		CaptureFinding(st.ctx, loopNodeID, fmt.Sprintf("data error: loop list input is not list-shaped: %v", err), SeverityError)
		st.nodeState[loopNodeID] = NodeExecuted
		st.captureNodeEnd(loopNodeID, n)
		return true
	}

	iterationNodes := subgraphFrom(st.g, loopNodeID, SourceTypeContent, loopNodeID)
	aggregationNodes := subgraphFrom(st.g, loopNodeID, SourceTypeEnd, loopNodeID)

	maxIter := DefaultMaxIterations
	if lc, ok := n.(loopConfig); ok && lc.MaxIterations() > 0 {
		maxIter = lc.MaxIterations()
	}

	// The loop node's own dependencies (any static inputs feeding it)
	// were already resolved by the caller's ensureExecuted before it
	// dispatched here. Marking it executed now lets the subgraph drive
	// below treat edges sourced at the loop node as satisfied.
	st.nodeState[loopNodeID] = NodeExecuted

	feedback := edgesInto(st.g, loopNodeID, HandleLoop)

	var aggregate []any
	for idx, item := range items {
		if idx >= maxIter {
			CaptureFinding(st.ctx, loopNodeID, fmt.Sprintf("MaxIterationsExceeded: stopped after %d of %d items", maxIter, len(items)), SeverityWarning)
			break
		}

		resetIterationRound(st, iterationNodes)

		for _, e := range outgoingWithType(st.g, loopNodeID, SourceTypeContent) {
			if target, ok := st.g.node(e.Target); ok {
				target.SetInput(e.TargetKey, item)
			}
		}
		n.SetOutput(SourceTypeContent, item)

		for _, id := range iterationNodes {
			if !st.ensureExecuted(id) {
				return false
			}
		}

		for _, e := range feedback {
			src, ok := st.g.node(e.Source)
			if !ok {
				continue
			}
			if v, ok := src.Outputs()[NormalizeSourceType(e.SourceType)]; ok {
				aggregate = append(aggregate, v)
			}
		}
	}

	n.SetOutput(SourceTypeEnd, aggregate)
	for _, e := range outgoingWithType(st.g, loopNodeID, SourceTypeEnd) {
		if target, ok := st.g.node(e.Target); ok {
			target.SetInput(e.TargetKey, aggregate)
		}
	}

	st.captureNodeEnd(loopNodeID, n)

	for _, id := range aggregationNodes {
		if !st.ensureExecuted(id) {
			return false
		}
	}

	return true
}

// resetIterationRound resets every iteration-subgraph node's execution
// state so it is eligible to be driven again this round. Nodes flagged
// iterate=true additionally have their terminal-event cache cleared so
// they genuinely re-run; nodes without that flag keep their cache and
// simply re-yield (and thus re-propagate) the same cached event, which
// is the intentional "built once, reused every iteration" semantics
// (§4.5 "Semantics", §9's narrowed Open Question resolution).
func resetIterationRound(st *execState, iterationNodes []string) {
	set := make(map[string]bool, len(iterationNodes))
	for _, id := range iterationNodes {
		set[id] = true
	}
	for _, id := range iterationNodes {
		nd, ok := st.g.node(id)
		if !ok {
			continue
		}
		if nd.Iterate() {
			nd.ResetCache()
		}
		st.nodeState[id] = NodeUnset
	}
	for _, e := range st.g.Edges {
		if set[e.Source] && set[e.Target] {
			e.Bypassed = false
		}
	}
}

// subgraphFrom does a forward BFS over g's edges starting at the nodes
// directly reached from startID via an edge tagged viaSourceType,
// stopping at (never including) excludeID — the loop node itself, so
// the loop-back edge into handle_loop does not pull the loop node back
// into its own subgraph (grounded on reactive_executor.py's
// find_iteration_subgraph).
func subgraphFrom(g *Graph, startID, viaSourceType, excludeID string) []string {
	visited := make(map[string]bool)
	var order []string
	var queue []string
	for _, e := range g.outgoing(startID) {
		if e.SourceType == viaSourceType && e.Target != excludeID {
			queue = append(queue, e.Target)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == excludeID || visited[id] {
			continue
		}
		visited[id] = true
		order = append(order, id)
		for _, e := range g.outgoing(id) {
			if e.Target != excludeID && !visited[e.Target] {
				queue = append(queue, e.Target)
			}
		}
	}
	return order
}

func edgesInto(g *Graph, nodeID, targetKey string) []*Edge {
	var out []*Edge
	for _, e := range g.incoming(nodeID) {
		if e.TargetKey == targetKey {
			out = append(out, e)
		}
	}
	return out
}

func outgoingWithType(g *Graph, nodeID, sourceType string) []*Edge {
	var out []*Edge
	for _, e := range g.outgoing(nodeID) {
		if e.SourceType == sourceType {
			out = append(out, e)
		}
	}
	return out
}

func upstreamBypassed(g *Graph, nodeID, targetKey string) bool {
	for _, e := range g.incoming(nodeID) {
		if e.TargetKey == targetKey && !e.Bypassed {
			return false
		}
	}
	return true
}

// decodeList accepts either an already-list-shaped value (the common
// case when an upstream node produced a native slice) or a JSON string
// (e.g. LLM-authored), repairing malformed JSON via jsonrepair through
// core/parse.ParseStringAs before giving up (§DOMAIN STACK).
func decodeList(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case string:
		return parse.ParseStringAs[[]any](v)
	default:
		return nil, fmt.Errorf("loop list input is %T, not a list or JSON string", raw)
	}
}
