// Package slogobs provides an observability.Provider implementation backed by
// Go's standard library log/slog package.
// It supports structured tracing, in-memory metrics, and levelled logging
// through a configurable slog.Handler that can emit compact, pretty, or JSON output.
// The main entry point is [New]; output format and log level can be tuned with
// [WithFormat], [WithLevel], [WithOutput], [WithColors], and [WithLogger].
//
// cmd/agentgraph wires an Observer in via graph.WithObserver when run with
// -observe, so every graph.Execute span (graph/observe.go) and debug event
// (graph/debug.go's collector) ends up as a log line here: node IDs, chunk
// counts, and redacted ChatLog fields flow through as ordinary
// observability.Attribute values rather than anything slog-specific.
package slogobs
