package graph

import "fmt"

// Severity distinguishes a hard validation failure from an informational
// diagnostic that does not block execution.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one structured validation record, grounded on the source's
// own graph validator reporting MissingConditionalEdge /
// MissingDefaultEdge / UndeclaredOutputs / InvalidEdgeSource /
// InvalidEdgeTarget / SelfLoopEdge / DuplicateEdge with a human-actionable
// suggestion string (§4.2).
type Finding struct {
	Type       string
	Severity   Severity
	NodeID     string
	EdgeID     string
	Message    string
	Suggestion string
}

// validate applies V1-V3 plus the source-grounded warning diagnostics to
// g alone; a nested graph gets its own findings from the Compile call
// that built it. It never aborts the build: findings are attached to the
// graph and surfaced as debug events at graph_start (§4.1's "Guarantees").
func validate(g *Graph) []Finding {
	var findings []Finding

	findings = append(findings, validateSingleEntry(g)...)
	findings = append(findings, validateDuplicateEdges(g)...)
	findings = append(findings, validateEdgeEndpoints(g)...)
	findings = append(findings, validateConditionalHandles(g)...)

	return findings
}

// validateSingleEntry enforces V1: exactly one user_input-type node.
func validateSingleEntry(g *Graph) []Finding {
	var entries []string
	for _, id := range g.Order {
		n, ok := g.node(id)
		if ok && n.Type() == "user_input" {
			entries = append(entries, id)
		}
	}

	switch len(entries) {
	case 1:
		return nil
	case 0:
		return []Finding{{
			Type:       "MissingEntryNode",
			Severity:   SeverityError,
			Message:    "graph declares no user_input node",
			Suggestion: "add exactly one node of type user_input to serve as the graph's master entry point",
		}}
	default:
		return []Finding{{
			Type:       "DuplicateEntryNode",
			Severity:   SeverityError,
			NodeID:     fmt.Sprintf("%v", entries),
			Message:    fmt.Sprintf("graph declares %d user_input nodes: %v", len(entries), entries),
			Suggestion: "keep exactly one user_input node; remove or retype the others",
		}}
	}
}

// validateDuplicateEdges enforces V2: no two edges share the full tuple
// (source, target, source_type, target_key). Same endpoints reached via
// different handles are explicitly allowed.
func validateDuplicateEdges(g *Graph) []Finding {
	var findings []Finding
	seen := make(map[string]*Edge)
	for _, e := range g.Edges {
		key := e.ID()
		if prior, ok := seen[key]; ok {
			findings = append(findings, Finding{
				Type:       "DuplicateEdge",
				Severity:   SeverityError,
				EdgeID:     fmt.Sprintf("%s,%s", prior.ID(), e.ID()),
				Message:    fmt.Sprintf("duplicate edge %s declared more than once", e.ID()),
				Suggestion: "remove the duplicate edge or change its source_type/target_key so it is distinct",
			})
			continue
		}
		seen[key] = e
	}
	return findings
}

// validateEdgeEndpoints flags edges referencing unknown nodes and
// self-loops. Self-loops are informational (severity=warning): they
// rarely make sense but the linear executor's bypass DFS handles them
// without special-casing.
func validateEdgeEndpoints(g *Graph) []Finding {
	var findings []Finding
	for _, e := range g.Edges {
		if _, ok := g.node(e.Source); !ok {
			findings = append(findings, Finding{
				Type:       "InvalidEdgeSource",
				Severity:   SeverityError,
				EdgeID:     e.ID(),
				Message:    fmt.Sprintf("edge %s references unknown source node %q", e.ID(), e.Source),
				Suggestion: "fix the edge's source id or add the missing node",
			})
		}
		if _, ok := g.node(e.Target); !ok {
			findings = append(findings, Finding{
				Type:       "InvalidEdgeTarget",
				Severity:   SeverityError,
				EdgeID:     e.ID(),
				Message:    fmt.Sprintf("edge %s references unknown target node %q", e.ID(), e.Target),
				Suggestion: "fix the edge's target id or add the missing node",
			})
		}
		if e.Source == e.Target {
			findings = append(findings, Finding{
				Type:       "SelfLoopEdge",
				Severity:   SeverityWarning,
				EdgeID:     e.ID(),
				Message:    fmt.Sprintf("edge %s is a self-loop on node %q", e.ID(), e.Source),
				Suggestion: "self-loops never become ready under the linear executor's readiness rule; consider a loop node instead",
			})
		}
	}
	return findings
}

// conditionalConfig is the subset of a conditional node's configuration
// the validator needs to check declared handles against wired edges.
// nodes.Conditional implements this via its exported accessor.
type conditionalConfig interface {
	OutputHandles() []string
	DefaultHandle() string
}

// validateConditionalHandles checks (warning-level, §4.2) that every
// handle a conditional declares in output_handles has a matching
// outgoing edge, and that its configured default_handle, if any, is
// wired to some outgoing edge.
func validateConditionalHandles(g *Graph) []Finding {
	var findings []Finding
	for _, id := range g.Order {
		n, ok := g.node(id)
		if !ok || n.Type() != "conditional" {
			continue
		}
		cc, ok := n.(conditionalConfig)
		if !ok {
			continue
		}

		wired := make(map[string]bool)
		for _, e := range g.outgoing(id) {
			wired[e.SourceType] = true
		}

		for _, handle := range cc.OutputHandles() {
			if !wired[handle] {
				findings = append(findings, Finding{
					Type:       "UndeclaredOutputs",
					Severity:   SeverityWarning,
					NodeID:     id,
					Message:    fmt.Sprintf("conditional %q declares output handle %q with no outgoing edge", id, handle),
					Suggestion: "wire an edge from this handle, or remove it from output_handles",
				})
			}
		}

		if def := cc.DefaultHandle(); def != "" && !wired[def] {
			findings = append(findings, Finding{
				Type:       "MissingDefaultEdge",
				Severity:   SeverityWarning,
				NodeID:     id,
				Message:    fmt.Sprintf("conditional %q configures default_handle %q with no outgoing edge", id, def),
				Suggestion: "wire an edge from the default handle, or clear default_handle",
			})
		}
	}
	return findings
}

// HasErrors reports whether findings contains any severity=error entry.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
