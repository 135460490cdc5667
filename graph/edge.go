package graph

import "fmt"

// ReservedVoidKey is the target_key a sink-bound edge is rewritten to
// carry (§4.1 operation 2): any edge whose spec omitted a target_key is
// pointed at the process-wide sink node under this key.
const ReservedVoidKey = "void"

// Edge connects a node's named output (SourceType) to another node's
// named input (TargetKey). Bypassed is the runtime bit the bypass
// engine flips; it starts false.
type Edge struct {
	Source     string
	SourceType string
	Target     string
	TargetKey  string
	Bypassed   bool
}

// ID returns a stable identifier for this edge, used in validation
// findings and debug records — the full (source, target, source_type,
// target_key) tuple invariant I2 is keyed on.
func (e *Edge) ID() string {
	return fmt.Sprintf("%s.%s->%s.%s", e.Source, e.SourceType, e.Target, e.TargetKey)
}

// sameEndpoints reports whether two edges share the full tuple that
// invariant I2 forbids duplicating.
func (e *Edge) sameEndpoints(other *Edge) bool {
	return e.Source == other.Source &&
		e.Target == other.Target &&
		e.SourceType == other.SourceType &&
		e.TargetKey == other.TargetKey
}
