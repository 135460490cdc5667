// Package errs defines the distinct error kinds the graph engine yields.
//
// No exception ever escapes the executor: every failure mode below is
// captured into a debug record and wrapped with one of these sentinel
// types so callers can classify it with errors.As, the same way the rest
// of the codebase distinguishes error kinds (see core/parse, providers/tool).
package errs

import "fmt"

// SpecError reports a graph build/validation failure: missing entry node,
// duplicate edges, or a malformed nested spec.
type SpecError struct {
	Message string
	NodeIDs []string
	EdgeIDs []string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("spec error: %s", e.Message)
}

// ConfigError reports a malformed node configuration discovered at build
// or execute time (a conditional with no template, a client with no
// provider, and so on).
type ConfigError struct {
	NodeID  string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error on node %q: %s", e.NodeID, e.Message)
}

// InputError reports a required input missing at execution time.
type InputError struct {
	NodeID string
	Key    string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error on node %q: missing required input %q", e.NodeID, e.Key)
}

// TemplateError reports a template render failure, carrying the offending
// template text and the keys that were actually available.
type TemplateError struct {
	NodeID   string
	Template string
	Keys     []string
	Cause    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error on node %q: %v (available keys: %v)", e.NodeID, e.Cause, e.Keys)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

// TransportError reports an HTTP or LLM transport failure.
type TransportError struct {
	NodeID string
	Status int
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on node %q (status %d): %v", e.NodeID, e.Status, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// DataError reports a JSON parse or type-check failure, e.g. a loop's
// list input that did not decode to a list.
type DataError struct {
	NodeID string
	Cause  error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error on node %q: %v", e.NodeID, e.Cause)
}

func (e *DataError) Unwrap() error { return e.Cause }

// RoutingError reports a conditional that rendered a branch name with no
// matching outgoing edge and no wired default handle.
type RoutingError struct {
	NodeID  string
	Handle  string
	Wired   []string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing error on node %q: handle %q matches none of %v", e.NodeID, e.Handle, e.Wired)
}

// Deadlock reports a scheduler that made no progress while edges remained
// pending (a cycle outside of loop semantics).
type Deadlock struct {
	PendingEdges []string
}

func (e *Deadlock) Error() string {
	return fmt.Sprintf("deadlock: scheduler made no progress with %d edges pending", len(e.PendingEdges))
}
