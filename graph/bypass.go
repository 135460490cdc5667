package graph

// markBypassed implements the node half of the bypass engine's DFS
// (§4.6): mark n bypassed, bypass every outgoing edge, and recurse into
// each target — but only bypass a target once ALL of its incoming
// edges are bypassed (invariant I7), so a live sibling parent keeps a
// merge node reachable (B4, "merge convergence").
func markBypassed(st *execState, nodeID string) {
	if st.nodeState[nodeID] == NodeBypassed {
		return
	}
	st.nodeState[nodeID] = NodeBypassed
	if n, ok := st.g.node(nodeID); ok {
		n.MarkBypassed()
		st.captureNodeEnd(nodeID, n)
	}
	for _, e := range st.g.outgoing(nodeID) {
		e.Bypassed = true
		propagateBypassToTarget(st, e.Target)
	}
}

// propagateBypassToTarget is dfs(e.target) from §4.6's pseudocode: a
// target only becomes bypassed once every one of its incoming edges is
// bypassed. A target with zero incoming edges (an entry node) is never
// auto-bypassed this way.
func propagateBypassToTarget(st *execState, targetID string) {
	incoming := st.g.incoming(targetID)
	if len(incoming) == 0 {
		return
	}
	for _, e := range incoming {
		if !e.Bypassed {
			return
		}
	}
	markBypassed(st, targetID)
}
